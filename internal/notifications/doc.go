// Package notifications pushes run outcomes to ntfy.
//
// Separation runs take hours on large libraries, so the CLI announces when a
// run ends and how it went. Without a configured topic NewService returns a
// no-op and callers never need to check.
package notifications
