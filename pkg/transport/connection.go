package transport

import (
	"errors"
	"net"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
)

// ConnectionState is the lifecycle state of a connection.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Connection errors.
var (
	ErrNotConnected     = errors.New("transport: not connected")
	ErrConnectionClosed = errors.New("transport: connection closed")
	ErrQueueFull        = errors.New("transport: outbound queue full")
	ErrAlreadyRunning   = errors.New("transport: server already running")
)

// IsClosedError reports whether err comes from using a closed socket,
// which is expected after a local Close.
func IsClosedError(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, ErrConnectionClosed)
}

func logStateChange(logger log.Logger, lc LogContext, oldState, newState ConnectionState, reason string) {
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: lc.ConnID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		Role:         lc.Role,
		Component:    lc.Component,
		RemoteAddr:   lc.RemoteAddr,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}
