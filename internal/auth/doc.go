// Package auth handles sessions for the development chat server: HS256 JWTs
// in a "user" cookie and a middleware that resolves them to a user id.
package auth
