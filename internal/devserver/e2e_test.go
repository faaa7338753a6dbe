// ABOUTME: End-to-end test of the client stack against the development server
// ABOUTME: Stream connection, enrichment, dispatch, and routing over real HTTP and SSE

package devserver

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/chatapi"
	"github.com/2389/coven-chat/internal/dedupe"
	"github.com/2389/coven-chat/internal/events"
	"github.com/2389/coven-chat/internal/friends"
	"github.com/2389/coven-chat/internal/inbox"
	"github.com/2389/coven-chat/internal/notification"
	"github.com/2389/coven-chat/internal/router"
	"github.com/2389/coven-chat/internal/stream"
)

type recordingSink struct {
	mu    sync.Mutex
	shown []chatapi.Message
}

func (s *recordingSink) ShowHistory(_ inbox.ID, msgs []chatapi.Message, _ bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, msgs...)
}

func (s *recordingSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.shown))
	for i, m := range s.shown {
		out[i] = m.Text
	}
	return out
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.login(t, "alice", "Alice")
	bob := env.login(t, "bob", "Bob")

	users, err := alice.Friends(ctx)
	require.NoError(t, err)
	list := friends.NewList(nil)
	for _, u := range users {
		list.Replace(append(list.Snapshot(), friends.Friend{ID: u.ID, Username: u.Username}))
	}
	require.Len(t, list.Snapshot(), 1)

	sink := &recordingSink{}
	dispatcher := events.NewDispatcher(nil)
	rt := router.New(router.Options{
		LocalUser: "alice",
		History:   alice,
		Poster:    alice,
		Friends:   list,
		Sink:      sink,
		Seen:      dedupe.New(time.Minute, 64),
	})
	_, err = rt.Attach(ctx, dispatcher)
	require.NoError(t, err)

	notes := make(chan notification.Record, 4)
	_, err = events.OnNotification(dispatcher, func(rec notification.Record) error {
		notes <- rec
		return nil
	})
	require.NoError(t, err)

	var statesMu sync.Mutex
	var states []stream.State
	conn := stream.New(
		stream.NewSSETransport(alice.Resty(), "/api/events"),
		dispatcher,
		notification.NewEnricher(alice, "users", nil),
		stream.WithStateHook(func(_, to stream.State) {
			statesMu.Lock()
			states = append(states, to)
			statesMu.Unlock()
		}),
	)
	t.Cleanup(conn.Disconnect)

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Connect(connectCtx))
	assert.Equal(t, stream.StateConnected, conn.State())

	// Activity in a conversation that is not open marks the sender unread.
	require.NoError(t, bob.PostMessage(ctx, "d_alice_bob", "are you there?"))
	require.Eventually(t, func() bool {
		f, _ := list.Get("bob")
		return f.HasUnread
	}, 2*time.Second, 10*time.Millisecond)

	// Opening the conversation loads its history and clears the flag.
	_, err = rt.StartChat(ctx, "bob")
	require.NoError(t, err)
	f, _ := list.Get("bob")
	assert.False(t, f.HasUnread)
	assert.True(t, f.IsSelected)
	assert.Equal(t, []string{"are you there?"}, sink.texts())

	// New activity in the open conversation refetches from the marker.
	require.NoError(t, bob.PostMessage(ctx, "d_alice_bob", "hello?"))
	require.Eventually(t, func() bool {
		return len(sink.texts()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"are you there?", "hello?"}, sink.texts())

	// A new user's login arrives as a notification with the friend list inlined.
	env.login(t, "carol", "Carol")
	select {
	case rec := <-notes:
		assert.Equal(t, []string{"event", "user_id", "friends"}, rec.Keys())
		assert.Equal(t, "user_joined", rec.String("event"))
		var got []chatapi.User
		require.NoError(t, rec.Decode("friends", &got))
		assert.Equal(t, []chatapi.User{{ID: "bob", Username: "Bob"}, {ID: "carol", Username: "Carol"}}, got)
		raw, err := json.Marshal(rec)
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"user_joined","user_id":"carol","friends":[{"id":"bob","username":"Bob"},{"id":"carol","username":"Carol"}]}`, string(raw))
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
	}

	// Disconnect returns to idle; a fresh Connect works again.
	conn.Disconnect()
	assert.Equal(t, stream.StateIdle, conn.State())
	require.NoError(t, conn.Connect(connectCtx))

	statesMu.Lock()
	defer statesMu.Unlock()
	assert.Equal(t, []stream.State{
		stream.StateConnecting, stream.StateConnected,
		stream.StateIdle,
		stream.StateConnecting, stream.StateConnected,
	}, states)
}
