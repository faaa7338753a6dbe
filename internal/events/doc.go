// Package events provides the in-process publish/subscribe registry that
// carries stream events to their consumers.
//
// # Overview
//
// The stream connection parses frames and hands them to a Dispatcher; the
// dispatcher calls every subscriber registered for that kind. The
// dispatcher owns no network state.
//
//	d := events.NewDispatcher(logger)
//	tok, _ := events.OnInbox(d, func(ev events.InboxEvent) error { ... })
//	defer d.Unsubscribe(tok)
//
// # Kinds
//
// Exactly two kinds are recognized:
//
//   - inbox: InboxEvent payloads
//   - notification: notification.Record payloads, already enriched
//
// Subscribe rejects any other kind with ErrUnknownKind.
//
// # Delivery
//
// Dispatch is synchronous: it returns after every subscriber for the kind
// has run, in subscription order. A subscriber that returns an error or
// panics is logged as ErrHandler and the remaining subscribers still run.
// Subscriptions persist until Unsubscribe; removing a token twice is a
// no-op.
package events
