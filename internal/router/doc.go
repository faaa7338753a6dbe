// Package router turns "new activity" events into user-visible effects.
//
// An inbox event for the conversation currently open refetches its history
// from the event's marker; an event for any other direct conversation marks
// the other participant as having unread messages. Group conversations are
// not routed and are reported as errors.
//
// The router also owns which conversation is open, so StartChat and Send
// live here.
package router
