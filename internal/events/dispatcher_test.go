// ABOUTME: Tests for the event dispatcher
// ABOUTME: Covers ordering, failure isolation, unsubscribe semantics, and typed helpers

package events

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/notification"
)

func TestDispatcher_SubscribeUnknownKind(t *testing.T) {
	d := NewDispatcher(nil)

	_, err := d.Subscribe("presence", func(any) error { return nil })
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDispatcher_SubscribeNilHandler(t *testing.T) {
	d := NewDispatcher(nil)

	_, err := d.Subscribe(KindInbox, nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = OnInbox(d, nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = OnNotification(d, nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	assert.Equal(t, 0, d.subscribers(KindInbox))
}

func TestDispatcher_DeliversInSubscriptionOrder(t *testing.T) {
	d := NewDispatcher(nil)

	var calls []string
	for _, name := range []string{"first", "second", "third"} {
		_, err := d.Subscribe(KindInbox, func(payload any) error {
			calls = append(calls, name+":"+payload.(string))
			return nil
		})
		require.NoError(t, err)
	}

	d.Dispatch(KindInbox, "p")
	assert.Equal(t, []string{"first:p", "second:p", "third:p"}, calls)
}

func TestDispatcher_FailingHandlerDoesNotStarveOthers(t *testing.T) {
	tests := []struct {
		name   string
		second Handler
	}{
		{name: "error", second: func(any) error { return errors.New("nope") }},
		{name: "panic", second: func(any) error { panic("boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(nil)

			var calls []int
			_, err := d.Subscribe(KindNotification, func(any) error { calls = append(calls, 1); return nil })
			require.NoError(t, err)
			_, err = d.Subscribe(KindNotification, func(p any) error { calls = append(calls, 2); return tt.second(p) })
			require.NoError(t, err)
			_, err = d.Subscribe(KindNotification, func(any) error { calls = append(calls, 3); return nil })
			require.NoError(t, err)

			assert.NotPanics(t, func() { d.Dispatch(KindNotification, nil) })
			assert.Equal(t, []int{1, 2, 3}, calls)
		})
	}
}

func TestDispatcher_InvokeWrapsErrHandler(t *testing.T) {
	d := NewDispatcher(nil)
	err := d.invoke(&subscription{handler: func(any) error { panic("x") }}, nil)
	assert.ErrorIs(t, err, ErrHandler)

	cause := errors.New("cause")
	err = d.invoke(&subscription{handler: func(any) error { return cause }}, nil)
	assert.ErrorIs(t, err, ErrHandler)
	assert.ErrorIs(t, err, cause)
}

func TestDispatcher_KindsAreIsolated(t *testing.T) {
	d := NewDispatcher(nil)

	inboxCalls := 0
	_, err := d.Subscribe(KindInbox, func(any) error { inboxCalls++; return nil })
	require.NoError(t, err)

	d.Dispatch(KindNotification, nil)
	assert.Equal(t, 0, inboxCalls)
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := NewDispatcher(nil)

	var calls []string
	tokA, err := d.Subscribe(KindInbox, func(any) error { calls = append(calls, "a"); return nil })
	require.NoError(t, err)
	tokB, err := d.Subscribe(KindInbox, func(any) error { calls = append(calls, "b"); return nil })
	require.NoError(t, err)
	_, err = d.Subscribe(KindInbox, func(any) error { calls = append(calls, "c"); return nil })
	require.NoError(t, err)

	d.Unsubscribe(tokB)
	d.Dispatch(KindInbox, nil)
	assert.Equal(t, []string{"a", "c"}, calls)
	assert.Equal(t, 2, d.subscribers(KindInbox))

	// Removing twice, or a token that never existed, is a no-op.
	assert.NotPanics(t, func() {
		d.Unsubscribe(tokB)
		d.Unsubscribe("not-a-token")
	})

	d.Unsubscribe(tokA)
	calls = nil
	d.Dispatch(KindInbox, nil)
	assert.Equal(t, []string{"c"}, calls)
}

func TestDispatcher_UnsubscribeDuringDispatch(t *testing.T) {
	d := NewDispatcher(nil)

	var calls []string
	var tokSelf Token
	tokSelf, err := d.Subscribe(KindInbox, func(any) error {
		calls = append(calls, "self")
		d.Unsubscribe(tokSelf)
		return nil
	})
	require.NoError(t, err)
	_, err = d.Subscribe(KindInbox, func(any) error { calls = append(calls, "other"); return nil })
	require.NoError(t, err)

	d.Dispatch(KindInbox, nil)
	d.Dispatch(KindInbox, nil)
	assert.Equal(t, []string{"self", "other", "other"}, calls)
}

func TestDispatcher_ConcurrentSubscribeAndDispatch(t *testing.T) {
	d := NewDispatcher(nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tok, err := d.Subscribe(KindInbox, func(any) error { return nil })
			assert.NoError(t, err)
			d.Unsubscribe(tok)
		}()
		go func() {
			defer wg.Done()
			d.Dispatch(KindInbox, InboxEvent{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, d.subscribers(KindInbox))
}

func TestTypedHelpers(t *testing.T) {
	d := NewDispatcher(nil)

	var gotInbox InboxEvent
	_, err := OnInbox(d, func(ev InboxEvent) error { gotInbox = ev; return nil })
	require.NoError(t, err)

	var gotRec notification.Record
	_, err = OnNotification(d, func(rec notification.Record) error { gotRec = rec; return nil })
	require.NoError(t, err)

	d.Dispatch(KindInbox, InboxEvent{Inbox: "d_a_b", Marker: "7"})
	assert.Equal(t, InboxEvent{Inbox: "d_a_b", Marker: "7"}, gotInbox)

	rec := notification.NewRecord(notification.Entry{Key: "k", Value: []byte(`1`)})
	d.Dispatch(KindNotification, rec)
	assert.Equal(t, []string{"k"}, gotRec.Keys())

	// A wrongly typed payload is a handler error, not a panic.
	assert.NotPanics(t, func() { d.Dispatch(KindInbox, "wrong") })
}
