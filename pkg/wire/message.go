package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Sync is the marker byte that starts every frame.
const Sync byte = 0xAA

const (
	idLenSize   = 2
	dataLenSize = 4

	// HeaderSize is the fixed overhead of a frame: sync, both length
	// prefixes and the checksum.
	HeaderSize = 1 + idLenSize + dataLenSize + 1

	// MaxIDLength is the longest id a frame can carry.
	MaxIDLength = math.MaxUint16
)

// Message is a decoded frame.
type Message struct {
	Sync     byte
	ID       string
	Payload  string
	Checksum byte
}

// New builds a valid message for id and payload.
func New(id, payload string) *Message {
	return &Message{
		Sync:     Sync,
		ID:       id,
		Payload:  payload,
		Checksum: Checksum(id, payload),
	}
}

// Checksum returns the XOR of every byte of id and payload.
func Checksum(id, payload string) byte {
	var c byte
	for i := 0; i < len(id); i++ {
		c ^= id[i]
	}
	for i := 0; i < len(payload); i++ {
		c ^= payload[i]
	}
	return c
}

// IsValid reports whether the sync byte and checksum match.
func (m *Message) IsValid() bool {
	return m != nil && m.Sync == Sync && m.Checksum == Checksum(m.ID, m.Payload)
}

// Validate returns ErrInvalidMessage when the message is not valid.
func (m *Message) Validate() error {
	if !m.IsValid() {
		return ErrInvalidMessage
	}
	return nil
}

// Size returns the encoded length of the message.
func (m *Message) Size() int {
	return HeaderSize + len(m.ID) + len(m.Payload)
}

// MarshalBinary encodes the message as it is, including a sync byte or
// checksum that may not be valid.
func (m *Message) MarshalBinary() ([]byte, error) {
	if len(m.ID) > MaxIDLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrIDTooLong, len(m.ID))
	}
	if uint64(len(m.Payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload %d bytes", ErrMessageTooLarge, len(m.Payload))
	}

	buf := make([]byte, m.Size())
	buf[0] = m.Sync
	off := 1
	binary.BigEndian.PutUint16(buf[off:], uint16(len(m.ID)))
	off += idLenSize
	off += copy(buf[off:], m.ID)
	binary.BigEndian.PutUint32(buf[off:], uint32(len(m.Payload)))
	off += dataLenSize
	off += copy(buf[off:], m.Payload)
	buf[off] = m.Checksum
	return buf, nil
}

// Encode produces the frame for id and payload.
func Encode(id, payload string) ([]byte, error) {
	return New(id, payload).MarshalBinary()
}

// Decode parses exactly one frame from data.
//
// A frame with a bad sync byte or checksum decodes without error; check
// IsValid on the result.
func Decode(data []byte) (*Message, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncated
	}

	m := &Message{Sync: data[0]}
	off := 1
	idLen := int(binary.BigEndian.Uint16(data[off:]))
	off += idLenSize
	if len(data) < off+idLen+dataLenSize+1 {
		return nil, ErrTruncated
	}
	m.ID = string(data[off : off+idLen])
	off += idLen

	dataLen := uint64(binary.BigEndian.Uint32(data[off:]))
	off += dataLenSize
	if uint64(len(data)-off) < dataLen+1 {
		return nil, ErrTruncated
	}
	m.Payload = string(data[off : off+int(dataLen)])
	off += int(dataLen)

	m.Checksum = data[off]
	off++
	if off != len(data) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(data)-off)
	}
	return m, nil
}

// Read reads exactly one frame from r.
//
// maxSize bounds the encoded frame length; zero means no limit. A clean end
// of stream before the first byte returns io.EOF. A stream that ends inside
// a frame returns ErrTruncated.
func Read(r io.Reader, maxSize int) (*Message, error) {
	var head [1 + idLenSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, streamErr(err, 0)
	}

	idLen := int(binary.BigEndian.Uint16(head[1:]))
	if maxSize > 0 && HeaderSize+idLen > maxSize {
		return nil, fmt.Errorf("%w: id %d bytes, limit %d", ErrMessageTooLarge, idLen, maxSize)
	}

	idAndLen := make([]byte, idLen+dataLenSize)
	if _, err := io.ReadFull(r, idAndLen); err != nil {
		return nil, streamErr(err, len(head))
	}

	dataLen := uint64(binary.BigEndian.Uint32(idAndLen[idLen:]))
	total := uint64(HeaderSize+idLen) + dataLen
	if maxSize > 0 && total > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLarge, total, maxSize)
	}

	rest := make([]byte, dataLen+1)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, streamErr(err, len(head))
	}

	return &Message{
		Sync:     head[0],
		ID:       string(idAndLen[:idLen]),
		Payload:  string(rest[:dataLen]),
		Checksum: rest[dataLen],
	}, nil
}

// streamErr maps io.ReadFull errors to codec errors. An EOF before any
// byte of the frame was read stays io.EOF.
func streamErr(err error, consumed int) error {
	switch {
	case err == io.EOF && consumed == 0:
		return io.EOF
	case err == io.EOF, err == io.ErrUnexpectedEOF:
		return ErrTruncated
	default:
		return err
	}
}

// Write encodes m and writes it to w in a single call.
func Write(w io.Writer, m *Message) error {
	buf, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
