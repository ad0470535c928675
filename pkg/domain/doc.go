/*
Package domain contains the core data model of the intake wizard.

It defines the entities the conversation engine reads and writes, and is kept
free of I/O and persistence concerns so that every adapter (Telegram, console,
HTTP, Redis) speaks the same vocabulary.

# Key Entities

  - Step: one prompt of the form (field name, label, prompt text).
  - Session: a user's progress through the form (state, step index, answers).
  - Event: an inbound message already stripped of transport details.
  - Action: an instruction for the host to send something (prompt, summary, forward, ack).
*/
package domain
