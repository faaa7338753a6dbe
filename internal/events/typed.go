// ABOUTME: Payload types for stream events and typed subscription helpers
// ABOUTME: Wraps Dispatcher.Subscribe so subscribers receive concrete types

package events

import (
	"fmt"

	"github.com/2389/coven-chat/internal/inbox"
	"github.com/2389/coven-chat/internal/notification"
)

// InboxEvent signals new activity in a conversation.
type InboxEvent struct {
	Inbox inbox.ID
	// Marker is the opaque position to resume history fetching from.
	Marker string
}

// OnInbox subscribes fn to inbox events.
func OnInbox(d *Dispatcher, fn func(InboxEvent) error) (Token, error) {
	if fn == nil {
		return "", fmt.Errorf("%w for kind %q", ErrNilHandler, KindInbox)
	}
	return d.Subscribe(KindInbox, func(payload any) error {
		ev, ok := payload.(InboxEvent)
		if !ok {
			return fmt.Errorf("unexpected inbox payload %T", payload)
		}
		return fn(ev)
	})
}

// OnNotification subscribes fn to enriched notification records.
func OnNotification(d *Dispatcher, fn func(notification.Record) error) (Token, error) {
	if fn == nil {
		return "", fmt.Errorf("%w for kind %q", ErrNilHandler, KindNotification)
	}
	return d.Subscribe(KindNotification, func(payload any) error {
		rec, ok := payload.(notification.Record)
		if !ok {
			return fmt.Errorf("unexpected notification payload %T", payload)
		}
		return fn(rec)
	})
}
