// ABOUTME: Data types and errors for the development chat server's persistence
// ABOUTME: Users and direct-conversation messages

package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUser is returned when creating a user id that already exists
	ErrDuplicateUser = errors.New("user already exists")
)

// User is a registered chat user.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Message is a stored chat message. IDs increase monotonically across all
// conversations, so an ID doubles as a history marker.
type Message struct {
	ID        int64
	Inbox     string
	FromUser  string
	Text      string
	CreatedAt time.Time
}
