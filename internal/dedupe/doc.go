// Package dedupe remembers recently handled keys so repeated events within a
// time window are processed once.
package dedupe
