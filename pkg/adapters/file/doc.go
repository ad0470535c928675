// Package file provides a session store that keeps one JSON file per user.
// It suits single-process deployments that must survive restarts without Redis.
package file
