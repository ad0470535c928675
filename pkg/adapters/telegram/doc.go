// Package telegram connects the dispatcher to the Telegram Bot API.
//
// Inbound updates are read by long polling and turned into domain events;
// outbound messages are sent as HTML with an optional one-row reply keyboard.
package telegram
