// ABOUTME: Typed publish/subscribe registry keyed by event kind
// ABOUTME: Delivers synchronously in subscription order and isolates failing handlers

package events

import (
	"container/list"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownKind is returned by Subscribe for kinds the dispatcher does not carry.
var ErrUnknownKind = errors.New("unknown event kind")

// ErrNilHandler is returned by Subscribe when handler is nil.
var ErrNilHandler = errors.New("nil handler")

// ErrHandler wraps an error returned (or a panic raised) by a subscriber.
var ErrHandler = errors.New("event handler failed")

// Kind names a class of stream events.
type Kind string

const (
	// KindInbox is new activity in a conversation.
	KindInbox Kind = "inbox"
	// KindNotification is an enriched notification record.
	KindNotification Kind = "notification"
)

// Valid reports whether k is one of the recognized kinds.
func (k Kind) Valid() bool {
	return k == KindInbox || k == KindNotification
}

// Handler receives the payload of a dispatched event.
type Handler func(payload any) error

// Token identifies a subscription for later removal.
type Token string

type subscription struct {
	token   Token
	kind    Kind
	handler Handler
}

// Dispatcher fans events out to subscribers. Subscribers of a kind are kept in
// a list in subscription order; an index by token makes removal O(1).
type Dispatcher struct {
	mu     sync.RWMutex
	byKind map[Kind]*list.List
	index  map[Token]*list.Element
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher. Pass nil logger for default.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		byKind: make(map[Kind]*list.List),
		index:  make(map[Token]*list.Element),
		logger: logger.With("component", "dispatcher"),
	}
}

// Subscribe registers handler for kind and returns a token for Unsubscribe.
func (d *Dispatcher) Subscribe(kind Kind, handler Handler) (Token, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if handler == nil {
		return "", fmt.Errorf("%w for kind %q", ErrNilHandler, kind)
	}

	sub := &subscription{
		token:   Token(uuid.New().String()),
		kind:    kind,
		handler: handler,
	}

	d.mu.Lock()
	subs, ok := d.byKind[kind]
	if !ok {
		subs = list.New()
		d.byKind[kind] = subs
	}
	d.index[sub.token] = subs.PushBack(sub)
	d.mu.Unlock()

	d.logger.Debug("subscriber added", "kind", kind, "token", sub.token)
	return sub.token, nil
}

// Unsubscribe removes a subscription. Unknown or already removed tokens are ignored.
func (d *Dispatcher) Unsubscribe(token Token) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem, ok := d.index[token]
	if !ok {
		return
	}
	sub, _ := elem.Value.(*subscription)
	d.byKind[sub.kind].Remove(elem)
	delete(d.index, token)

	d.logger.Debug("subscriber removed", "kind", sub.kind, "token", token)
}

// subscribers returns the number of subscriptions for kind.
func (d *Dispatcher) subscribers(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	subs, ok := d.byKind[kind]
	if !ok {
		return 0
	}
	return subs.Len()
}

// Dispatch calls every current subscriber of kind with payload, in
// subscription order, before returning. A failing subscriber is logged and
// does not stop delivery to the others.
func (d *Dispatcher) Dispatch(kind Kind, payload any) {
	if !kind.Valid() {
		d.logger.Warn("dispatch for unknown kind dropped", "kind", kind)
		return
	}

	// Snapshot under read lock so handlers may (un)subscribe while running.
	d.mu.RLock()
	var targets []*subscription
	if subs, ok := d.byKind[kind]; ok {
		targets = make([]*subscription, 0, subs.Len())
		for e := subs.Front(); e != nil; e = e.Next() {
			sub, _ := e.Value.(*subscription)
			targets = append(targets, sub)
		}
	}
	d.mu.RUnlock()

	for _, sub := range targets {
		if err := d.invoke(sub, payload); err != nil {
			d.logger.Error("subscriber failed",
				"kind", kind,
				"token", sub.token,
				"error", err)
		}
	}
}

// invoke runs one handler, converting a panic into an error.
func (d *Dispatcher) invoke(sub *subscription, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrHandler, r)
		}
	}()
	if herr := sub.handler(payload); herr != nil {
		return fmt.Errorf("%w: %w", ErrHandler, herr)
	}
	return nil
}
