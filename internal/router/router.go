// ABOUTME: Routes inbox events to a history refetch or an unread mark
// ABOUTME: Also owns the open conversation for starting chats and sending messages

package router

//go:generate mockgen -destination=mock/collaborators_mock.go -package=mock github.com/2389/coven-chat/internal/router HistoryFetcher,MessagePoster,FriendList,HistorySink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/2389/coven-chat/internal/chatapi"
	"github.com/2389/coven-chat/internal/dedupe"
	"github.com/2389/coven-chat/internal/events"
	"github.com/2389/coven-chat/internal/inbox"
)

var (
	// ErrNoConversation is returned by Send when no conversation is open.
	ErrNoConversation = errors.New("no open conversation")

	// ErrEmptyMessage is returned by Send for blank text.
	ErrEmptyMessage = errors.New("empty message")

	// ErrNotParticipant is returned for an inbox event whose conversation
	// does not include the local user.
	ErrNotParticipant = errors.New("local user is not a participant")
)

// HistoryFetcher loads conversation history.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, id inbox.ID, marker string) ([]chatapi.Message, error)
}

// MessagePoster sends a message to a conversation.
type MessagePoster interface {
	PostMessage(ctx context.Context, id inbox.ID, text string) error
}

// FriendList receives unread marks and selection changes.
type FriendList interface {
	MarkUnread(id string) bool
	Select(id string) bool
}

// HistorySink displays fetched history. resumed is true when msgs continue
// from a marker rather than replacing the whole conversation.
type HistorySink interface {
	ShowHistory(id inbox.ID, msgs []chatapi.Message, resumed bool)
}

// Options configures a Router.
type Options struct {
	// LocalUser is the id of the logged-in user. Required.
	LocalUser string
	History   HistoryFetcher
	Poster    MessagePoster
	Friends   FriendList
	Sink      HistorySink
	// Seen suppresses repeated (inbox, marker) events. Nil disables it.
	Seen   *dedupe.Set
	Logger *slog.Logger
}

// Router decides what each inbox event means for the local user.
type Router struct {
	self    string
	history HistoryFetcher
	poster  MessagePoster
	friends FriendList
	sink    HistorySink
	seen    *dedupe.Set
	logger  *slog.Logger

	mu      sync.Mutex
	current inbox.ID
	// shown is the highest message id handed to the sink for current.
	shown int64
	// pending refetches run one at a time, in arrival order.
	pending  []refetchJob
	fetching bool

	refetches sync.WaitGroup
}

type refetchJob struct {
	ctx context.Context
	ev  events.InboxEvent
}

// New creates a router.
func New(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		self:    opts.LocalUser,
		history: opts.History,
		poster:  opts.Poster,
		friends: opts.Friends,
		sink:    opts.Sink,
		seen:    opts.Seen,
		logger:  logger.With("component", "router"),
	}
}

// Attach subscribes the router to inbox events on d. Refetches started from
// dispatched events run under ctx.
func (r *Router) Attach(ctx context.Context, d *events.Dispatcher) (events.Token, error) {
	return events.OnInbox(d, func(ev events.InboxEvent) error {
		return r.HandleInbox(ctx, ev)
	})
}

// Current returns the open conversation, or "" if none.
func (r *Router) Current() inbox.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// HandleInbox routes one inbox event. For the open conversation it queues a
// history refetch from the event's marker and returns without waiting.
// Refetches run in arrival order and never show a message twice.
// Otherwise it marks the other participant unread. Group conversations fail
// with inbox.ErrInvalidArgument.
func (r *Router) HandleInbox(ctx context.Context, ev events.InboxEvent) error {
	if cur := r.Current(); cur != "" && ev.Inbox == cur {
		if r.duplicate(ev) {
			return nil
		}
		r.refetch(ctx, ev)
		return nil
	}

	participants, err := inbox.Participants(ev.Inbox)
	if err != nil {
		return fmt.Errorf("routing inbox event: %w", err)
	}
	other, err := inbox.Other(ev.Inbox, r.self)
	if err != nil {
		return fmt.Errorf("routing inbox event for %v: %w", participants, ErrNotParticipant)
	}
	if other == r.self {
		r.logger.Debug("ignoring activity in self conversation", "inbox", ev.Inbox)
		return nil
	}
	if r.duplicate(ev) {
		return nil
	}

	if r.friends != nil && !r.friends.MarkUnread(other) {
		r.logger.Debug("unread mark for unknown friend", "friend", other, "inbox", ev.Inbox)
	}
	return nil
}

// StartChat opens the direct conversation with friendID and loads its full
// history.
func (r *Router) StartChat(ctx context.Context, friendID string) (inbox.ID, error) {
	if friendID == r.self {
		return "", fmt.Errorf("%w: cannot chat with yourself", inbox.ErrInvalidArgument)
	}
	id, err := inbox.New(r.self, friendID)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.current = id
	r.shown = 0
	r.mu.Unlock()

	if r.friends != nil {
		r.friends.Select(friendID)
	}

	msgs, err := r.history.FetchHistory(ctx, id, "")
	if err != nil {
		return id, fmt.Errorf("loading history: %w", err)
	}
	r.mu.Lock()
	if r.current == id {
		r.shown = max(r.shown, lastID(msgs))
	}
	r.mu.Unlock()
	if r.sink != nil {
		r.sink.ShowHistory(id, msgs, false)
	}

	r.logger.Info("chat started", "inbox", id, "messages", len(msgs))
	return id, nil
}

// Send posts text to the open conversation.
func (r *Router) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	id := r.Current()
	if id == "" {
		return ErrNoConversation
	}
	return r.poster.PostMessage(ctx, id, text)
}

// Wait blocks until every refetch started so far has finished.
func (r *Router) Wait() {
	r.refetches.Wait()
}

func (r *Router) duplicate(ev events.InboxEvent) bool {
	if r.seen == nil || ev.Marker == "" {
		return false
	}
	if r.seen.Add(ev.Inbox.String() + "#" + ev.Marker) {
		return false
	}
	r.logger.Debug("duplicate inbox event", "inbox", ev.Inbox, "marker", ev.Marker)
	return true
}

func (r *Router) refetch(ctx context.Context, ev events.InboxEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = append(r.pending, refetchJob{ctx: ctx, ev: ev})
	if r.fetching {
		return
	}
	r.fetching = true
	r.refetches.Add(1)
	go r.drainRefetches()
}

// drainRefetches runs queued refetches until the queue is empty.
func (r *Router) drainRefetches() {
	defer r.refetches.Done()
	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.fetching = false
			r.mu.Unlock()
			return
		}
		job := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()

		r.runRefetch(job.ctx, job.ev)
	}
}

func (r *Router) runRefetch(ctx context.Context, ev events.InboxEvent) {
	msgs, err := r.history.FetchHistory(ctx, ev.Inbox, ev.Marker)
	if err != nil {
		r.logger.Error("history refetch failed", "inbox", ev.Inbox, "marker", ev.Marker, "error", err)
		return
	}

	r.mu.Lock()
	if r.current != ev.Inbox {
		r.mu.Unlock()
		r.logger.Debug("conversation changed during refetch", "inbox", ev.Inbox)
		return
	}
	fresh := newerThan(msgs, r.shown)
	r.shown = max(r.shown, lastID(fresh))
	r.mu.Unlock()

	if len(msgs) > 0 && len(fresh) == 0 {
		r.logger.Debug("refetch returned nothing new", "inbox", ev.Inbox, "marker", ev.Marker)
		return
	}
	if r.sink != nil {
		r.sink.ShowHistory(ev.Inbox, fresh, true)
	}
}

// newerThan returns the messages with ids above after. msgs is returned
// unchanged when nothing is dropped.
func newerThan(msgs []chatapi.Message, after int64) []chatapi.Message {
	for i, m := range msgs {
		if m.MessageID > after {
			continue
		}
		out := append([]chatapi.Message(nil), msgs[:i]...)
		for _, m := range msgs[i+1:] {
			if m.MessageID > after {
				out = append(out, m)
			}
		}
		return out
	}
	return msgs
}

func lastID(msgs []chatapi.Message) int64 {
	var id int64
	for _, m := range msgs {
		id = max(id, m.MessageID)
	}
	return id
}
