package domain

import "errors"

// ErrSessionNotFound is returned when no session exists for a user ID.
var ErrSessionNotFound = errors.New("session not found")
