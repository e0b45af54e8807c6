// Package transport carries wire frames over TCP for the network bridge.
//
// The layer handles:
//   - Reading and writing self-delimiting wire frames with a size limit
//   - A server with a mutex-protected set of live connections
//   - Per-connection outbound queues so one slow peer does not stall others
//   - A dialing client
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Bus messages (id, data)      │
//	├────────────────────────────────┤
//	│   Wire frames (sync/len/xor)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// The transport does not interpret frames. Every decoded frame, valid or
// not, is handed to the caller, which decides whether a bad checksum skips
// the frame or drops the connection. Stream errors (truncation, oversize
// frames, I/O errors) always end the connection.
package transport
