// ABOUTME: Server-Sent Events frame reader and HTTP transport for the event channel
// ABOUTME: Opens GET <events path> through resty and parses event/data lines into frames

package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	// maxFrameSize bounds a single SSE line.
	maxFrameSize = 1 << 20

	// defaultEventType is the SSE type of a frame without an "event:" line.
	defaultEventType = "message"
)

// Frame is one parsed Server-Sent Event.
type Frame struct {
	Event string
	Data  string
	ID    string
}

// FrameReader yields frames from one open transport.
type FrameReader interface {
	// Next blocks until the next frame arrives. It returns io.EOF when the
	// server ends the stream.
	Next() (Frame, error)
	Close() error
}

// Transport opens the underlying event channel.
type Transport interface {
	Open(ctx context.Context) (FrameReader, error)
}

// SSETransport opens the event channel as an HTTP SSE stream.
type SSETransport struct {
	client *resty.Client
	path   string
}

// NewSSETransport creates a transport that GETs path on client. The client
// should carry the session cookie and must not have a request timeout.
func NewSSETransport(client *resty.Client, path string) *SSETransport {
	return &SSETransport{client: client, path: path}
}

// Open issues the stream request and returns a reader over its body.
func (t *SSETransport) Open(ctx context.Context) (FrameReader, error) {
	resp, err := t.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache").
		Get(t.path)
	if err != nil {
		return nil, fmt.Errorf("opening event stream: %w", err)
	}

	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		defer body.Close()
		msg, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, fmt.Errorf("event stream returned status %d: %s", resp.StatusCode(), strings.TrimSpace(string(msg)))
	}

	return NewSSEReader(body), nil
}

// SSEReader parses an SSE byte stream into frames.
type SSEReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

// NewSSEReader wraps body.
func NewSSEReader(body io.ReadCloser) *SSEReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &SSEReader{body: body, scanner: scanner}
}

// Next returns the next complete frame.
func (r *SSEReader) Next() (Frame, error) {
	var frame Frame
	var dataLines []string
	pending := false

	for r.scanner.Scan() {
		line := r.scanner.Text()

		// Empty line signals end of event
		if line == "" {
			if !pending {
				continue
			}
			if frame.Event == "" {
				frame.Event = defaultEventType
			}
			frame.Data = strings.Join(dataLines, "\n")
			return frame, nil
		}

		// Comment / keep-alive
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			frame.Event = value
			pending = true
		case "data":
			dataLines = append(dataLines, value)
			pending = true
		case "id":
			frame.ID = value
			pending = true
		case "retry":
			// Reconnection is driven by the caller, not the server hint.
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("reading SSE stream: %w", err)
	}
	return Frame{}, io.EOF
}

// Close releases the underlying body.
func (r *SSEReader) Close() error {
	return r.body.Close()
}
