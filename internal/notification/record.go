// ABOUTME: Ordered key/value notification records decoded from raw frame JSON
// ABOUTME: Preserves frame key order on read (gjson) and on write (sjson)

package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrMalformedRecord is returned when a frame body is not a JSON object.
var ErrMalformedRecord = errors.New("malformed notification record")

// Entry is one key of a Record with its raw JSON value.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// Record is an ordered mapping from key to raw JSON value. Key order is the
// order in which keys appeared in the originating frame.
type Record struct {
	entries []Entry
}

// NewRecord builds a record from entries in the given order.
func NewRecord(entries ...Entry) Record {
	return Record{entries: append([]Entry(nil), entries...)}
}

// ParseRecord decodes a JSON object, keeping its key order.
func ParseRecord(data []byte) (Record, error) {
	if !gjson.ValidBytes(data) {
		return Record{}, fmt.Errorf("%w: invalid JSON", ErrMalformedRecord)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Record{}, fmt.Errorf("%w: expected object, got %s", ErrMalformedRecord, root.Type)
	}

	var rec Record
	root.ForEach(func(key, value gjson.Result) bool {
		rec.entries = append(rec.entries, Entry{
			Key:   key.String(),
			Value: json.RawMessage(value.Raw),
		})
		return true
	})
	return rec, nil
}

// Len returns the number of keys.
func (r Record) Len() int {
	return len(r.entries)
}

// Keys returns the keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in order.
func (r Record) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Get returns the raw value stored under key.
func (r Record) Get(key string) (json.RawMessage, bool) {
	for _, e := range r.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// String returns the plain string stored under key, or "" if absent or not a string.
func (r Record) String(key string) string {
	raw, ok := r.Get(key)
	if !ok {
		return ""
	}
	v := gjson.ParseBytes(raw)
	if v.Type != gjson.String {
		return ""
	}
	return v.String()
}

// Decode unmarshals the value stored under key into v.
func (r Record) Decode(key string, v any) error {
	raw, ok := r.Get(key)
	if !ok {
		return fmt.Errorf("key %q not present", key)
	}
	return json.Unmarshal(raw, v)
}

// MarshalJSON encodes the record as a JSON object in key order.
func (r Record) MarshalJSON() ([]byte, error) {
	out := []byte("{}")
	for _, e := range r.entries {
		var err error
		out, err = sjson.SetRawBytes(out, escapePath(e.Key), e.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", e.Key, err)
		}
	}
	return out, nil
}

// escapePath makes a literal key safe to use as an sjson path.
func escapePath(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch c {
		case '\\', '.', '*', '?', '|', '#', '@', ':', '!', '=', '<', '>', '%', '~':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
