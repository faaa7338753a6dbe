// Package store persists users and messages for the development chat server.
//
// SQLiteStore uses modernc.org/sqlite (pure Go, no cgo) in WAL mode and
// creates its schema on open. Message ids come from an AUTOINCREMENT column,
// so they never repeat and can be used as history markers: ListMessages
// returns everything after a given id.
package store
