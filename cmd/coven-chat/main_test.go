// ABOUTME: Tests for the coven-chat command loop, notification handling, and logger
// ABOUTME: Uses a fake router so no server is needed

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/chatapi"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/friends"
	"github.com/2389/coven-chat/internal/inbox"
	"github.com/2389/coven-chat/internal/notification"
	"github.com/2389/coven-chat/internal/router"
	"github.com/2389/coven-chat/internal/stream"
)

func init() {
	color.NoColor = true
}

type fakeRouter struct {
	started []string
	sent    []string
	current inbox.ID
	sendErr error
}

func (f *fakeRouter) StartChat(_ context.Context, friendID string) (inbox.ID, error) {
	f.started = append(f.started, friendID)
	id, err := inbox.New("alice", friendID)
	f.current = id
	return id, err
}

func (f *fakeRouter) Send(_ context.Context, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeRouter) Current() inbox.ID { return f.current }

type fixedState stream.State

func (s fixedState) State() stream.State { return stream.State(s) }

func newCommands(rt *fakeRouter) (*commands, *bytes.Buffer) {
	var buf bytes.Buffer
	list := friends.NewList(nil)
	list.Replace([]friends.Friend{{ID: "bob", Username: "Bob"}, {ID: "carol", Username: "Carol"}})
	return &commands{
		router:  rt,
		friends: list,
		conn:    fixedState(stream.StateConnected),
		out:     newConsole(&buf, "alice"),
	}, &buf
}

func TestExecute_ChatAndSend(t *testing.T) {
	rt := &fakeRouter{}
	cmds, _ := newCommands(rt)
	ctx := context.Background()

	assert.False(t, cmds.execute(ctx, "/chat bob"))
	assert.False(t, cmds.execute(ctx, "  hello bob  "))

	assert.Equal(t, []string{"bob"}, rt.started)
	assert.Equal(t, []string{"hello bob"}, rt.sent)
}

func TestExecute_Errors(t *testing.T) {
	rt := &fakeRouter{sendErr: router.ErrNoConversation}
	cmds, buf := newCommands(rt)
	ctx := context.Background()

	cmds.execute(ctx, "hi")
	assert.Contains(t, buf.String(), "no open conversation")

	cmds.execute(ctx, "/chat")
	assert.Contains(t, buf.String(), "usage: /chat")

	cmds.execute(ctx, "/chat dave")
	assert.Contains(t, buf.String(), `unknown friend "dave"`)
	assert.Empty(t, rt.started)

	cmds.execute(ctx, "/bogus")
	assert.Contains(t, buf.String(), "unknown command /bogus")

	rt.sendErr = errors.New("offline")
	cmds.execute(ctx, "hi")
	assert.Contains(t, buf.String(), "sending: offline")
}

func TestExecute_FriendsAndStatus(t *testing.T) {
	rt := &fakeRouter{}
	cmds, buf := newCommands(rt)
	ctx := context.Background()
	cmds.friends.MarkUnread("carol")

	cmds.execute(ctx, "/friends")
	out := buf.String()
	assert.Contains(t, out, "* carol")
	assert.Contains(t, out, "bob")

	cmds.execute(ctx, "/status")
	assert.Contains(t, buf.String(), "stream: connected, conversation: none")
}

func TestExecute_Quit(t *testing.T) {
	cmds, _ := newCommands(&fakeRouter{})
	assert.True(t, cmds.execute(context.Background(), "/quit"))
	assert.True(t, cmds.execute(context.Background(), "/q"))
}

func TestLoop_StopsAtEOFOrQuit(t *testing.T) {
	rt := &fakeRouter{}
	cmds, _ := newCommands(rt)

	err := cmds.loop(context.Background(), strings.NewReader("/chat bob\nfirst\n/quit\nnever sent\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, rt.sent)

	err = cmds.loop(context.Background(), strings.NewReader("/help\n"))
	require.NoError(t, err)
}

func TestConsole_ShowHistory(t *testing.T) {
	var buf bytes.Buffer
	c := newConsole(&buf, "alice")

	c.ShowHistory("d_alice_bob", nil, false)
	assert.Contains(t, buf.String(), "conversation with bob")
	assert.Contains(t, buf.String(), "no messages yet")

	buf.Reset()
	c.ShowHistory("d_alice_bob", []chatapi.Message{
		{FromUser: "bob", Text: "hey"},
		{FromUser: "alice", Text: "hi"},
	}, true)
	assert.NotContains(t, buf.String(), "conversation with")
	assert.Contains(t, buf.String(), "bob: hey")
	assert.Contains(t, buf.String(), "you: hi")
}

func TestHandleNotification_UserJoinedReplacesFriends(t *testing.T) {
	var buf bytes.Buffer
	out := newConsole(&buf, "alice")
	list := friends.NewList(nil)
	list.Replace([]friends.Friend{{ID: "bob", Username: "Bob"}})
	list.MarkUnread("bob")

	rec, err := notification.ParseRecord([]byte(`{"event":"user_joined","user_id":"carol","friends":[{"id":"bob","username":"Bob"},{"id":"carol","username":"Carol"}]}`))
	require.NoError(t, err)

	require.NoError(t, handleNotification(rec, list, out, "alice"))
	assert.Equal(t, []friends.Friend{
		{ID: "bob", Username: "Bob", HasUnread: true},
		{ID: "carol", Username: "Carol"},
	}, list.Snapshot())
	assert.Contains(t, buf.String(), "carol joined")
}

func TestHandleNotification_UnresolvedFriendsFails(t *testing.T) {
	out := newConsole(&bytes.Buffer{}, "alice")
	rec, err := notification.ParseRecord([]byte(`{"event":"user_joined","user_id":"carol","friends":{"data_uri":"/api/friends"}}`))
	require.NoError(t, err)

	assert.Error(t, handleNotification(rec, friends.NewList(nil), out, "alice"))
}

func TestHandleNotification_OtherEventsListEntries(t *testing.T) {
	var buf bytes.Buffer
	out := newConsole(&buf, "alice")
	rec, err := notification.ParseRecord([]byte(`{"event":"user_left","user_id":"carol"}`))
	require.NoError(t, err)

	require.NoError(t, handleNotification(rec, friends.NewList(nil), out, "alice"))
	assert.Contains(t, buf.String(), `notification: event="user_left" user_id="carol"`)
}

func TestToFriends_SkipsSelf(t *testing.T) {
	got := toFriends([]chatapi.User{{ID: "alice"}, {ID: "bob", Username: "Bob"}}, "alice")
	assert.Equal(t, []friends.Friend{{ID: "bob", Username: "Bob"}}, got)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.With("component", "stream").WithGroup("req").Warn("shown", "id", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WRN shown")
	assert.Contains(t, out, "component=stream")
	assert.Contains(t, out, "req.id=7")

	buf.Reset()
	jsonLogger := newLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	jsonLogger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
