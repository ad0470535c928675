/*
Package ports defines the driven ports (interfaces) of the intake engine.

These interfaces decouple the conversation engine from its storage backends
and from the locking strategy used to serialize a user's events.

# Key Interfaces

  - SessionStore: persists and loads a user's Session.
  - DistributedLocker: provides cross-replica locking for a user's session.
*/
package ports
