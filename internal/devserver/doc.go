// Package devserver is a small chat backend for local development and
// end-to-end tests of the client.
//
// It serves the same API the client consumes: cookie login at /api/auth, the
// friend list, per-conversation history and posting at /api/chats, and an SSE
// stream at /api/events. The stream starts with an "ack" event, then carries
// "inbox" events when a conversation the user belongs to gets a message and
// "notification" events when another user logs in. Notifications reference
// the friend list by address ({"data_uri": "/api/friends"}) rather than
// inlining it.
package devserver
