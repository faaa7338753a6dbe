// ABOUTME: Owns the single persistent event channel and its handshake state machine
// ABOUTME: Coalesces concurrent Connect calls, parses frames, and routes them to the dispatcher

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/2389/coven-chat/internal/events"
	"github.com/2389/coven-chat/internal/inbox"
	"github.com/2389/coven-chat/internal/notification"
)

var (
	// ErrTransport wraps failures to open or read the event channel.
	ErrTransport = errors.New("transport error")
	// ErrDisconnected is returned to Connect callers whose pending
	// handshake was cut short by Disconnect.
	ErrDisconnected = errors.New("disconnected")
)

// Frame event types understood by the connection.
const (
	EventAck          = "ack"
	EventInbox        = "inbox"
	EventNotification = "notification"
)

// DefaultNotificationQueue is the number of notifications that may await
// enrichment per session before new ones are dropped.
const DefaultNotificationQueue = 64

// State is the lifecycle state of a Connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	// StateFailed is reported transiently on transport errors, immediately
	// followed by StateIdle.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Enricher resolves indirections inside notification records.
type Enricher interface {
	Enrich(ctx context.Context, rec notification.Record) (notification.Record, error)
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStateHook registers fn to observe state transitions. fn runs outside
// the connection's lock and may call State.
func WithStateHook(fn func(from, to State)) Option {
	return func(c *Connection) {
		c.stateHook = fn
	}
}

// WithNotificationQueue bounds the notifications awaiting enrichment.
func WithNotificationQueue(n int) Option {
	return func(c *Connection) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// Connection is the exclusive owner of the event channel. At most one
// transport is open at a time; concurrent Connect calls share it.
type Connection struct {
	transport  Transport
	dispatcher *events.Dispatcher
	enricher   Enricher
	logger     *slog.Logger
	stateHook  func(from, to State)
	queueSize  int

	mu      sync.Mutex
	state   State
	session *session
	// last is the most recently opened session, kept after it ends.
	last *session

	// deliverMu serializes handler invocations across frame kinds so
	// subscribers never run concurrently with each other.
	deliverMu sync.Mutex
}

// session is one opened transport, from Connect until failure or Disconnect.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}
	once   sync.Once
	err    error
	done   chan struct{}
}

// settle resolves every Connect waiting on this session. Only the first call counts.
func (s *session) settle(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.ready)
	})
}

// pendingNote is a notification whose enrichment may still be in flight.
type pendingNote struct {
	done chan struct{}
	rec  notification.Record
	err  error
}

// New creates an idle connection. A nil enricher delivers notification
// records as parsed.
func New(transport Transport, dispatcher *events.Dispatcher, enricher Enricher, opts ...Option) *Connection {
	c := &Connection{
		transport:  transport,
		dispatcher: dispatcher,
		enricher:   enricher,
		logger:     slog.Default(),
		queueSize:  DefaultNotificationQueue,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "stream")
	return c
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the event channel and blocks until the server's handshake
// acknowledgement arrives. It returns immediately when already connected and
// joins the pending handshake when one is in progress, so concurrent callers
// share a single transport. Cancelling ctx stops waiting but leaves the
// handshake running for other callers.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateConnecting:
		sess := c.session
		c.mu.Unlock()
		return c.await(ctx, sess)
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		ctx:    sessCtx,
		cancel: cancel,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.session = sess
	c.last = sess
	from := c.state
	c.state = StateConnecting
	c.mu.Unlock()

	c.emit(from, StateConnecting)
	c.logger.Debug("opening event stream")

	go c.run(sess)
	return c.await(ctx, sess)
}

// Disconnect closes the transport and returns to idle. It is a no-op when idle.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		return
	}
	from := c.state
	c.session = nil
	c.state = StateIdle
	c.mu.Unlock()

	sess.cancel()
	sess.settle(ErrDisconnected)
	c.emit(from, StateIdle)
	c.logger.Info("event stream disconnected")
}

// Wait blocks until the reader of the most recently opened session has
// stopped and its queued notifications are delivered, or ctx ends. It
// returns immediately when no session was ever opened.
func (c *Connection) Wait(ctx context.Context) error {
	c.mu.Lock()
	sess := c.last
	c.mu.Unlock()
	if sess == nil {
		return nil
	}
	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) await(ctx context.Context, sess *session) error {
	select {
	case <-sess.ready:
		return sess.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run reads frames from one transport until it fails or is disconnected.
func (c *Connection) run(sess *session) {
	defer close(sess.done)

	reader, err := c.transport.Open(sess.ctx)
	if err != nil {
		c.fail(sess, err)
		return
	}
	defer reader.Close()

	// Unblock a pending Next when the session is cancelled.
	stop := context.AfterFunc(sess.ctx, func() {
		reader.Close()
	})
	defer stop()

	notes := make(chan *pendingNote, c.queueSize)
	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		c.deliverNotifications(notes)
	}()
	defer func() {
		close(notes)
		<-delivered
	}()

	for {
		frame, err := reader.Next()
		if err != nil {
			c.fail(sess, err)
			return
		}
		c.handleFrame(sess, frame, notes)
	}
}

// fail tears down sess after a transport error. Errors caused by Disconnect
// are not reported.
func (c *Connection) fail(sess *session, cause error) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		sess.settle(ErrDisconnected)
		return
	}
	from := c.state
	c.session = nil
	c.state = StateIdle
	c.mu.Unlock()

	sess.cancel()
	c.emit(from, StateFailed)
	c.emit(StateFailed, StateIdle)

	if errors.Is(cause, io.EOF) {
		c.logger.Warn("event stream closed by server", "state", from)
	} else {
		c.logger.Error("event stream failed", "state", from, "error", cause)
	}
	sess.settle(fmt.Errorf("%w: %w", ErrTransport, cause))
}

func (c *Connection) handleFrame(sess *session, frame Frame, notes chan<- *pendingNote) {
	switch frame.Event {
	case EventAck:
		c.acknowledge(sess)

	case EventInbox:
		ev, err := parseInbox(frame.Data)
		if err != nil {
			c.logger.Warn("dropping malformed inbox frame", "error", err, "data", frame.Data)
			return
		}
		if !c.isCurrent(sess) {
			return
		}
		c.deliver(events.KindInbox, ev)

	case EventNotification:
		rec, err := notification.ParseRecord([]byte(frame.Data))
		if err != nil {
			c.logger.Warn("dropping malformed notification frame", "error", err, "data", frame.Data)
			return
		}
		c.enqueue(sess, rec, notes)

	default:
		c.logger.Debug("ignoring frame", "event", frame.Event)
	}
}

func (c *Connection) acknowledge(sess *session) {
	c.mu.Lock()
	if c.session != sess || c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateConnected
	c.mu.Unlock()

	c.emit(StateConnecting, StateConnected)
	c.logger.Info("event stream connected")
	sess.settle(nil)
}

func (c *Connection) isCurrent(sess *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session == sess
}

// enqueue starts enriching rec and queues it for in-order delivery.
// Enrichment is not cancelled by Disconnect.
func (c *Connection) enqueue(sess *session, rec notification.Record, notes chan<- *pendingNote) {
	p := &pendingNote{done: make(chan struct{})}
	select {
	case notes <- p:
	default:
		c.logger.Warn("notification queue full, dropping notification", "keys", rec.Keys())
		return
	}

	if c.enricher == nil {
		p.rec = rec
		close(p.done)
		return
	}

	ctx := context.WithoutCancel(sess.ctx)
	go func() {
		defer close(p.done)
		p.rec, p.err = c.enricher.Enrich(ctx, rec)
	}()
}

// deliverNotifications dispatches enriched records in arrival order.
func (c *Connection) deliverNotifications(notes <-chan *pendingNote) {
	for p := range notes {
		<-p.done
		if p.err != nil {
			c.logger.Warn("dropping notification", "error", p.err)
			continue
		}
		c.deliver(events.KindNotification, p.rec)
	}
}

func (c *Connection) deliver(kind events.Kind, payload any) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	c.dispatcher.Dispatch(kind, payload)
}

func (c *Connection) emit(from, to State) {
	if c.stateHook != nil && from != to {
		c.stateHook(from, to)
	}
}

// parseInbox decodes {"inbox": "<id>", "marker": <number|string>}.
func parseInbox(data string) (events.InboxEvent, error) {
	if !gjson.Valid(data) {
		return events.InboxEvent{}, errors.New("invalid JSON")
	}
	body := gjson.Parse(data)

	id := body.Get("inbox")
	if id.Type != gjson.String || id.String() == "" {
		return events.InboxEvent{}, errors.New("missing inbox identifier")
	}

	ev := events.InboxEvent{Inbox: inbox.ID(id.String())}
	marker := body.Get("marker")
	switch marker.Type {
	case gjson.Number:
		ev.Marker = marker.Raw
	case gjson.String:
		ev.Marker = marker.String()
	case gjson.Null:
	default:
		return events.InboxEvent{}, fmt.Errorf("unsupported marker type %s", marker.Type)
	}
	return ev, nil
}
