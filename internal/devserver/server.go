// ABOUTME: HTTP handlers of the development chat server
// ABOUTME: Auth, friends, chat history and posting, and the SSE event stream

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/inbox"
	"github.com/2389/coven-chat/internal/store"
)

const (
	// maxMessageBytes bounds a posted message body.
	maxMessageBytes = 64 << 10

	// keepaliveInterval is how often an idle stream gets a comment line.
	keepaliveInterval = 15 * time.Second

	// friendsURI is the indirection address pushed in user_joined notifications.
	friendsURI = "/api/friends"
)

// Store is the persistence the server needs.
type Store interface {
	CreateUser(ctx context.Context, u *store.User) error
	GetUser(ctx context.Context, id string) (*store.User, error)
	ListUsers(ctx context.Context, excludeID string) ([]store.User, error)
	AddMessage(ctx context.Context, m *store.Message) error
	ListMessages(ctx context.Context, inbox string, after int64) ([]store.Message, error)
}

// Server serves the chat API.
type Server struct {
	store    Store
	sessions *auth.Sessions
	hub      *Hub
	logger   *slog.Logger
}

// New creates a server. Pass nil logger for default.
func New(st Store, sessions *auth.Sessions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    st,
		sessions: sessions,
		hub:      NewHub(logger),
		logger:   logger.With("component", "devserver"),
	}
}

// Hub returns the server's event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close ends every open event stream.
func (s *Server) Close() {
	s.hub.Close()
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	requireSession := auth.RequireSession(s.sessions, s.store)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Chat API v.1.0")
	})
	mux.HandleFunc("POST /api/auth", s.handleLogin)
	mux.HandleFunc("DELETE /api/auth", s.handleLogout)
	mux.Handle("GET /api/friends", requireSession(http.HandlerFunc(s.handleFriends)))
	mux.Handle("GET /api/chats", requireSession(http.HandlerFunc(s.handleHistory)))
	mux.Handle("POST /api/chats", requireSession(http.HandlerFunc(s.handlePost)))
	mux.Handle("GET /api/events", requireSession(http.HandlerFunc(s.handleEvents)))
	return mux
}

type loginRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type friendsResponse struct {
	OK    bool           `json:"ok"`
	Users []userResponse `json:"users"`
}

type messageResponse struct {
	MessageID int64  `json:"message_id"`
	FromUser  string `json:"from_user"`
	Inbox     string `json:"inbox"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type historyResponse struct {
	OK       bool              `json:"ok"`
	Messages []messageResponse `json:"messages"`
}

type inboxPayload struct {
	Inbox  string `json:"inbox"`
	Marker int64  `json:"marker"`
}

type indirection struct {
	DataURI string `json:"data_uri"`
}

// userJoinedPayload keeps its field order on the wire.
type userJoinedPayload struct {
	Event   string      `json:"event"`
	UserID  string      `json:"user_id"`
	Friends indirection `json:"friends"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.Contains(req.UserID, "_") {
		s.sendJSONError(w, http.StatusBadRequest, "user_id must not contain '_'")
		return
	}

	_, err := s.store.GetUser(r.Context(), req.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound) && req.Username != "":
		err = s.store.CreateUser(r.Context(), &store.User{ID: req.UserID, Username: req.Username})
		if err != nil && !errors.Is(err, store.ErrDuplicateUser) {
			s.logger.Error("creating user", "user_id", req.UserID, "error", err)
			s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		s.logger.Info("user registered", "user_id", req.UserID)
	case errors.Is(err, store.ErrNotFound):
		s.sendJSONError(w, http.StatusBadRequest, "user is not found and user name is not given")
		return
	case err != nil:
		s.logger.Error("looking up user", "user_id", req.UserID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := s.sessions.SetCookie(w, req.UserID); err != nil {
		s.logger.Error("setting session", "user_id", req.UserID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.hub.Broadcast(Event{Name: "notification", Data: userJoinedPayload{
		Event:   "user_joined",
		UserID:  req.UserID,
		Friends: indirection{DataURI: friendsURI},
	}}, req.UserID)

	s.sendJSON(w, http.StatusOK, "ok")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	s.sendJSON(w, http.StatusOK, "ok")
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserFromContext(r.Context())

	users, err := s.store.ListUsers(r.Context(), userID)
	if err != nil {
		s.logger.Error("listing users", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := friendsResponse{OK: true, Users: make([]userResponse, len(users))}
	for i, u := range users {
		resp.Users[i] = userResponse{ID: u.ID, Username: u.Username}
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// conversationFor validates the inbox query parameter and the caller's
// membership in it. Older clients send conversation_id instead of inbox.
func (s *Server) conversationFor(w http.ResponseWriter, r *http.Request) (inbox.ID, []string, bool) {
	q := r.URL.Query()
	raw := q.Get("inbox")
	if raw == "" {
		raw = q.Get("conversation_id")
	}
	id := inbox.ID(raw)
	_, participants, err := inbox.Parse(id)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid inbox")
		return "", nil, false
	}
	if !slices.Contains(participants, auth.UserFromContext(r.Context())) {
		s.sendJSONError(w, http.StatusForbidden, "not a participant")
		return "", nil, false
	}
	return id, participants, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.conversationFor(w, r)
	if !ok {
		return
	}

	var after int64
	if raw := r.URL.Query().Get("marker"); raw != "" {
		var err error
		after, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || after < 0 {
			s.sendJSONError(w, http.StatusBadRequest, "invalid marker")
			return
		}
	}

	msgs, err := s.store.ListMessages(r.Context(), id.String(), after)
	if err != nil {
		s.logger.Error("listing messages", "inbox", id, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := historyResponse{OK: true, Messages: make([]messageResponse, len(msgs))}
	for i, m := range msgs {
		resp.Messages[i] = messageResponse{
			MessageID: m.ID,
			FromUser:  m.FromUser,
			Inbox:     m.Inbox,
			Text:      m.Text,
			Timestamp: m.CreatedAt.UnixMilli(),
		}
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id, participants, ok := s.conversationFor(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		s.sendJSONError(w, http.StatusRequestEntityTooLarge, "message too large")
		return
	}
	text := string(body)
	if strings.TrimSpace(text) == "" {
		s.sendJSONError(w, http.StatusBadRequest, "empty message")
		return
	}

	msg := &store.Message{Inbox: id.String(), FromUser: auth.UserFromContext(r.Context()), Text: text}
	if err := s.store.AddMessage(r.Context(), msg); err != nil {
		s.logger.Error("storing message", "inbox", id, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// The marker is the position to resume after, so a refetch includes msg.
	ev := Event{Name: "inbox", Data: inboxPayload{Inbox: id.String(), Marker: msg.ID - 1}}
	for _, p := range participants {
		s.hub.Publish(p, ev)
	}

	s.logger.Debug("message posted", "inbox", id, "message_id", msg.ID)
	s.sendJSON(w, http.StatusOK, "ok")
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("streaming not supported")
		s.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	userID := auth.UserFromContext(r.Context())
	events, _ := s.hub.Subscribe(r.Context(), userID)
	s.logger.Debug("event stream opened", "user_id", userID, "streams", s.hub.Connected(userID))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	s.writeSSEEvent(w, "ack", map[string]string{"user_id": userID})
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.writeSSEEvent(w, ev.Name, ev.Data)
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one Server-Sent Event with a JSON data line.
func (s *Server) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("writing response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, map[string]string{"error": message})
}
