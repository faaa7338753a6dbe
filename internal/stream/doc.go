// Package stream owns the realtime event channel between the chat server and
// this client.
//
// # Overview
//
// A Connection holds at most one open Transport at a time. The default
// transport, SSETransport, is an HTTP Server-Sent Events stream opened with
// the same resty client (and therefore the same session cookie) as the
// plain API calls.
//
//	d := events.NewDispatcher(logger)
//	enricher := notification.NewEnricher(api, "users", logger)
//	conn := stream.New(stream.NewSSETransport(api.Resty(), "/api/events"), d, enricher)
//	if err := conn.Connect(ctx); err != nil { ... }
//
// # State Machine
//
//	Idle --Connect--> Connecting --ack frame--> Connected
//	Connecting|Connected --transport error--> Failed --> Idle
//	Connecting|Connected --Disconnect--> Idle
//
// Connect is idempotent. While a handshake is pending every caller waits on
// the same one, so concurrent callers at startup share one transport. No
// retry or backoff happens inside the connection: reconnection is driven by
// the visibility monitor or by an explicit Connect from the host.
//
// # Frames
//
//   - ack: handshake acknowledgement, no body
//   - inbox: {"inbox": "<conversation id>", "marker": <number|string>},
//     dispatched as events.InboxEvent
//   - notification: an ordered JSON object, enriched and then dispatched as
//     a notification.Record
//
// Malformed frames are logged and dropped. Notifications are enriched
// concurrently but delivered in arrival order, on their own goroutine, so a
// slow enrichment never delays inbox delivery. Disconnect does not cancel an
// in-flight enrichment; its result is still dispatched.
//
// All subscriber calls are serialized, so handlers never run concurrently
// with each other.
//
// # Visibility
//
// AttachVisibilityMonitor wires an optional host VisibilitySignal: hidden
// disconnects, visible connects. Without a signal it reports false and does
// nothing.
package stream
