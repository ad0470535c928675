// Package console runs the intake conversation over a line-based terminal.
//
// One local user talks to the bot through stdin. Replies and admin
// forwards are written to stdout, either as plain text or as JSON lines.
package console
