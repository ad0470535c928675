/*
Package dispatch connects a messaging transport to the conversation engine.

Transports turn their native updates into domain.Event values and hand them to
a Dispatcher. The Dispatcher drops duplicates and malformed events, sanitizes
the text, runs the engine, renders the resulting actions as HTML messages and
delivers them through a Messenger with bounded retries.

Events for one user are processed in arrival order through a dedicated lane;
different users are processed in parallel.
*/
package dispatch
