// Package log captures protocol events from the network bridge.
//
// It is separate from operational logging (slog). Protocol capture records
// a machine-readable trace of every frame, decoded wire message,
// connection state change and discovery exchange, for later inspection
// with the bc-log tool.
//
// # Sinks
//
//	// Console, at debug level
//	pl := log.NewSlogAdapter(slog.Default())
//
//	// Capture file
//	fl, _ := log.NewFileLogger("/var/log/breadcrumbs/bridge.bclog")
//
//	// Both
//	pl = log.NewMultiLogger(log.NewSlogAdapter(logger), fl)
//
// A nil Logger is not allowed; use NoopLogger to disable capture.
//
// # File Format
//
// Capture files are a sequence of CBOR-encoded Events with integer keys.
package log
