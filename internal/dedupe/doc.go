// Package dedupe provides webhook event deduplication using a time-based
// cache to prevent processing redelivered events within a configurable window.
package dedupe
