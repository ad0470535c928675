/*
Package session serializes access to each user's conversation session.

The Manager wraps a ports.SessionStore with a per-user mutex (reference counted
so idle users cost nothing) and, optionally, a ports.DistributedLocker for
deployments with several replicas. Different users never contend with each other.
*/
package session
