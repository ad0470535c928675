package ports

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// SessionStore maps user IDs to their conversation session.
// Implementations must be safe for concurrent use across different users.
type SessionStore interface {
	// Get retrieves the session for a user.
	// Returns domain.ErrSessionNotFound if the user has none.
	Get(ctx context.Context, userID string) (*domain.Session, error)

	// Set creates or replaces the session for a user.
	Set(ctx context.Context, userID string, session *domain.Session) error

	// Clear removes the session for a user. Clearing an absent session is not an error.
	Clear(ctx context.Context, userID string) error

	// List returns the IDs of users with a stored session.
	List(ctx context.Context) ([]string, error)
}
