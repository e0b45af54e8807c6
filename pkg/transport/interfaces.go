package transport

import (
	"context"
	"net"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/wire"
)

// ServerConnection is the server side of one connection.
type ServerConnection interface {
	ConnID() string
	RemoteAddr() net.Addr
	Send(frame []byte) error
	SendAsync(frame []byte) error
	Close() error
}

// ClientConnection is the client side of one connection.
type ClientConnection interface {
	ConnID() string
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Send(frame []byte) error
	ReadMessage() (*wire.Message, error)
	Close() error
}

// TransportServer accepts connections and fans frames out to them.
type TransportServer interface {
	Start(ctx context.Context) error
	Stop() error
	Addr() net.Addr
	ConnectionCount() int
	Broadcast(frame []byte) int
}

// FrameReadWriter reads and writes wire frames.
type FrameReadWriter interface {
	ReadMessage() (*wire.Message, error)
	WriteFrame(frame []byte) error
	WriteMessage(m *wire.Message) error
}

var (
	_ ServerConnection = (*ServerConn)(nil)
	_ ClientConnection = (*ClientConn)(nil)
	_ TransportServer  = (*Server)(nil)
	_ FrameReadWriter  = (*Framer)(nil)
)
