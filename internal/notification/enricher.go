// ABOUTME: Resolves indirection values ({"data_uri": ...}) inside notification records
// ABOUTME: Fetches all indirections of one record concurrently and delivers all-or-nothing

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// ErrEnrichmentFailed is returned when any indirection of a record cannot be resolved.
var ErrEnrichmentFailed = errors.New("enrichment failed")

const (
	// indirectionKey marks an object value as a reference to a secondary resource.
	indirectionKey = "data_uri"

	// DefaultResultField is the field of a fetched body substituted for an indirection.
	DefaultResultField = "users"
)

// Fetcher retrieves the body stored at an indirection address.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Enricher materializes the indirections of notification records.
type Enricher struct {
	fetcher     Fetcher
	resultField string
	logger      *slog.Logger
}

// NewEnricher creates an enricher. An empty resultField uses DefaultResultField;
// a nil logger uses slog.Default().
func NewEnricher(fetcher Fetcher, resultField string, logger *slog.Logger) *Enricher {
	if resultField == "" {
		resultField = DefaultResultField
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		fetcher:     fetcher,
		resultField: resultField,
		logger:      logger.With("component", "enricher"),
	}
}

// Indirection reports whether value is an indirection and returns its address.
func Indirection(value json.RawMessage) (string, bool) {
	v := gjson.ParseBytes(value)
	if !v.IsObject() {
		return "", false
	}
	uri := v.Get(indirectionKey)
	if uri.Type != gjson.String || uri.String() == "" {
		return "", false
	}
	return uri.String(), true
}

// Enrich returns a copy of rec with every indirection replaced by the result
// field of its fetched body. Fetches run concurrently; the record is returned
// only once all of them succeed. Key order is preserved.
func (e *Enricher) Enrich(ctx context.Context, rec Record) (Record, error) {
	out := make([]Entry, len(rec.entries))
	g, gctx := errgroup.WithContext(ctx)

	pending := 0
	for i, entry := range rec.entries {
		uri, ok := Indirection(entry.Value)
		if !ok {
			out[i] = entry
			continue
		}

		pending++
		g.Go(func() error {
			body, err := e.fetcher.Fetch(gctx, uri)
			if err != nil {
				return fmt.Errorf("resolving %q from %s: %w", entry.Key, uri, err)
			}
			res := gjson.GetBytes(body, e.resultField)
			if !res.Exists() {
				return fmt.Errorf("resolving %q from %s: field %q missing", entry.Key, uri, e.resultField)
			}
			out[i] = Entry{Key: entry.Key, Value: json.RawMessage(res.Raw)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrEnrichmentFailed, err)
	}

	if pending > 0 {
		e.logger.Debug("record enriched", "keys", len(out), "resolved", pending)
	}
	return NewRecord(out...), nil
}
