// Package runtime implements the conversation engine: a linear, per-user
// state machine (idle -> step 0 -> ... -> last step -> idle) driven by a
// data-only form definition.
package runtime
