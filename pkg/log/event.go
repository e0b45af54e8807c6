package log

import (
	"time"
)

// MaxCapturedBytes bounds the raw bytes kept in frame and message events.
const MaxCapturedBytes = 256

// Event is one captured protocol event.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the TCP connection (UUID). Empty for
	// discovery events.
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// Role is the local side of the exchange.
	Role Role `cbor:"6,keyasint,omitempty"`

	// Component is the instance name of the bridge component.
	Component string `cbor:"7,keyasint,omitempty"`

	RemoteAddr string `cbor:"8,keyasint,omitempty"`

	// One of these is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Discovery   *DiscoveryEvent   `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction of the event relative to the local process.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer that captured the event.
type Layer uint8

const (
	// LayerTransport sees raw frame bytes.
	LayerTransport Layer = 0
	// LayerWire sees decoded frames.
	LayerWire Layer = 1
	// LayerBridge sees bus-level bridge activity.
	LayerBridge Layer = 2
	// LayerDiscovery sees ping/pong datagrams.
	LayerDiscovery Layer = 3
)

func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerBridge:
		return "BRIDGE"
	case LayerDiscovery:
		return "DISCOVERY"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryControl Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role of the local endpoint.
type Role uint8

const (
	RoleUnknown Role = 0
	RoleClient  Role = 1
	RoleServer  Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleServer:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent holds raw frame bytes.
type FrameEvent struct {
	// Size is the full encoded frame size.
	Size int `cbor:"1,keyasint"`

	// Data holds at most MaxCapturedBytes of the frame.
	Data []byte `cbor:"2,keyasint,omitempty"`

	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewFrameEvent captures frame, truncating long frames.
func NewFrameEvent(frame []byte) *FrameEvent {
	fe := &FrameEvent{Size: len(frame)}
	if len(frame) > MaxCapturedBytes {
		fe.Data = append([]byte(nil), frame[:MaxCapturedBytes]...)
		fe.Truncated = true
	} else {
		fe.Data = append([]byte(nil), frame...)
	}
	return fe
}

// MessageEvent holds a decoded frame.
type MessageEvent struct {
	ID string `cbor:"1,keyasint"`

	PayloadSize int `cbor:"2,keyasint"`

	// Payload holds at most MaxCapturedBytes of the payload.
	Payload string `cbor:"3,keyasint,omitempty"`

	Valid    bool  `cbor:"4,keyasint"`
	Checksum uint8 `cbor:"5,keyasint"`
}

// NewMessageEvent captures a decoded frame.
func NewMessageEvent(id, payload string, checksum byte, valid bool) *MessageEvent {
	me := &MessageEvent{
		ID:          id,
		PayloadSize: len(payload),
		Payload:     payload,
		Valid:       valid,
		Checksum:    checksum,
	}
	if len(payload) > MaxCapturedBytes {
		me.Payload = payload[:MaxCapturedBytes]
	}
	return me
}

// StateChangeEvent records a lifecycle transition.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity is what changed state.
type StateEntity uint8

const (
	StateEntityConnection StateEntity = 0
	StateEntityClient     StateEntity = 1
	StateEntityServer     StateEntity = 2
)

func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityClient:
		return "CLIENT"
	case StateEntityServer:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}

// DiscoveryEvent records one ping or pong datagram.
type DiscoveryEvent struct {
	Type DiscoveryType `cbor:"1,keyasint"`

	// UpdateID is the client's round number, zero on the server.
	UpdateID int64 `cbor:"2,keyasint,omitempty"`

	// Index is the 1-based position of a newly found server.
	Index int `cbor:"3,keyasint,omitempty"`
}

// DiscoveryType distinguishes ping from pong.
type DiscoveryType uint8

const (
	DiscoveryPing DiscoveryType = 0
	DiscoveryPong DiscoveryType = 1
)

func (d DiscoveryType) String() string {
	switch d {
	case DiscoveryPing:
		return "PING"
	case DiscoveryPong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData records an error.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context names the operation that failed.
	Context string `cbor:"3,keyasint,omitempty"`
}
