// Package bus implements the in-process publish/subscribe message bus that
// every component communicates through.
//
// Messages are identified by opaque string ids. Publish delivers the
// attributes to every handler subscribed to the id, in subscription order,
// synchronously on the caller's goroutine. A handler that fails or panics
// is logged and skipped; the remaining handlers still run.
//
// The attributes passed to handlers are a frozen copy, so they can be
// retained and shared across goroutines. Handlers that need to modify them
// must Clone first.
package bus
