// Package chatapi is the client side of the chat server's plain HTTP API:
// POST/DELETE /api/auth, GET /api/friends, GET/POST /api/chats, and GETs of
// notification indirection addresses. None of these calls retry.
package chatapi
