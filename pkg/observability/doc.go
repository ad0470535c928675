/*
Package observability exposes Prometheus metrics for the intake wizard.

Metrics subscribe to the engine through domain.LifecycleHooks and are updated
by the dispatcher for inbound events and outbound deliveries. Label values are
limited to fixed enumerations; user IDs and answers never become labels.
*/
package observability
