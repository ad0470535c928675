/*
Package intake is a conversational registration wizard for chat bots.

A user starts a registration with a start command and is asked the steps of a
form one at a time. When the last answer arrives the compiled record is shown
to the user and forwarded to a fixed administrative recipient. A cancel
keyword abandons the registration at any point.

# Architecture

The conversation engine is a pure transition over an explicit per-user
session (pkg/domain, internal/runtime). Sessions live behind a store port
(pkg/ports) with in-memory and Redis adapters. The dispatcher (pkg/dispatch)
serializes events per user, renders engine actions as HTML and delivers them
through a transport messenger such as Telegram (pkg/adapters/telegram).

# Usage

	bot, err := intake.New(messenger, adminChatID)
	if err != nil {
		log.Fatal(err)
	}
	defer bot.Close()

	_ = bot.Submit(ctx, domain.Event{UserID: "42", IsStart: true})
*/
package intake
