// Package connection paces retries of failing network operations.
//
// The transport server uses a Backoff to slow its accept loop when the
// listener keeps returning errors (for example when the process runs out
// of file descriptors):
//
//	delay = base + random(0, base * jitter)
//	base  = min(initial * multiplier^attempt, max)
//
// The backoff resets after the first success.
package connection
