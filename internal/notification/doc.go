// Package notification models notification payloads and resolves the
// indirections they carry.
//
// # Records
//
// A notification frame body is a JSON object whose key order is significant.
// Record keeps that order: ParseRecord reads keys in document order and
// MarshalJSON writes them back in the same order.
//
// # Indirections
//
// A value of the form {"data_uri": "/api/friends"} is an indirection: the
// real value lives at that address. Enricher.Enrich fetches every
// indirection of a record concurrently and substitutes the configured field
// of each fetched body (by default "users"):
//
//	{"a": 1, "b": {"data_uri": "/x"}, "c": 2}
//	/x -> {"users": ["u1", "u2"]}
//	=> {"a": 1, "b": ["u1", "u2"], "c": 2}
//
// Enrichment is all-or-nothing. If any fetch fails the whole record fails
// with ErrEnrichmentFailed and no partial record is returned. Failed records
// are not retried.
package notification
