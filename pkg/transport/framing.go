package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/log"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/wire"
)

const (
	// DefaultMaxMessageSize bounds inbound frames (16 KB).
	DefaultMaxMessageSize = 16 * 1024

	// DefaultQueueSize is the outbound queue depth per connection.
	DefaultQueueSize = 64
)

var (
	// ErrMessageTooLarge indicates a frame larger than the limit.
	ErrMessageTooLarge = wire.ErrMessageTooLarge

	// ErrMessageEmpty indicates an empty frame.
	ErrMessageEmpty = errors.New("transport: empty frame")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = wire.ErrTruncated
)

// LogContext identifies a connection in protocol events.
type LogContext struct {
	ConnID     string
	Component  string
	Role       log.Role
	RemoteAddr string
}

func (lc LogContext) event(dir log.Direction, layer log.Layer, cat log.Category) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: lc.ConnID,
		Direction:    dir,
		Layer:        layer,
		Category:     cat,
		Role:         lc.Role,
		Component:    lc.Component,
		RemoteAddr:   lc.RemoteAddr,
	}
}

// FrameWriter writes encoded frames. Safe for concurrent use.
type FrameWriter struct {
	w       io.Writer
	maxSize int
	mu      sync.Mutex

	logger log.Logger
	lc     LogContext
}

// NewFrameWriter creates a writer with the default size limit.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterWithMaxSize(w, 0)
}

// NewFrameWriterWithMaxSize creates a writer. A maxSize of zero means no
// limit on outbound frames.
func NewFrameWriterWithMaxSize(w io.Writer, maxSize int) *FrameWriter {
	return &FrameWriter{w: w, maxSize: maxSize}
}

// SetLogger configures protocol capture. Pass nil to disable it.
func (fw *FrameWriter) SetLogger(logger log.Logger, lc LogContext) {
	fw.logger = logger
	fw.lc = lc
}

// WriteFrame writes one already encoded frame in a single write.
func (fw *FrameWriter) WriteFrame(frame []byte) error {
	if len(frame) == 0 {
		return ErrMessageEmpty
	}
	if fw.maxSize > 0 && len(frame) > fw.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(frame), fw.maxSize)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	if fw.logger != nil {
		e := fw.lc.event(log.DirectionOut, log.LayerTransport, log.CategoryMessage)
		e.Frame = log.NewFrameEvent(frame)
		fw.logger.Log(e)
	}
	return nil
}

// WriteMessage encodes m and writes it.
func (fw *FrameWriter) WriteMessage(m *wire.Message) error {
	frame, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	return fw.WriteFrame(frame)
}

// FrameReader reads frames from a stream.
type FrameReader struct {
	r       *bufio.Reader
	maxSize int

	logger log.Logger
	lc     LogContext
}

// NewFrameReader creates a reader with the default size limit.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxMessageSize)
}

// NewFrameReaderWithMaxSize creates a reader. A maxSize of zero means no
// limit.
func NewFrameReaderWithMaxSize(r io.Reader, maxSize int) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r), maxSize: maxSize}
}

// SetLogger configures protocol capture. Pass nil to disable it.
func (fr *FrameReader) SetLogger(logger log.Logger, lc LogContext) {
	fr.logger = logger
	fr.lc = lc
}

// SetMaxMessageSize updates the inbound size limit.
func (fr *FrameReader) SetMaxMessageSize(size int) {
	fr.maxSize = size
}

// ReadMessage reads one frame. Frames with a bad sync byte or checksum are
// returned without error; check IsValid. io.EOF is returned unwrapped on a
// clean end of stream.
func (fr *FrameReader) ReadMessage() (*wire.Message, error) {
	m, err := wire.Read(fr.r, fr.maxSize)
	if err != nil {
		if err != io.EOF && fr.logger != nil {
			e := fr.lc.event(log.DirectionIn, log.LayerWire, log.CategoryError)
			e.Error = &log.ErrorEventData{Layer: log.LayerWire, Message: err.Error(), Context: "read frame"}
			fr.logger.Log(e)
		}
		return nil, err
	}

	if fr.logger != nil {
		e := fr.lc.event(log.DirectionIn, log.LayerWire, log.CategoryMessage)
		e.Message = log.NewMessageEvent(m.ID, m.Payload, m.Checksum, m.IsValid())
		fr.logger.Log(e)
	}
	return m, nil
}

// Framer combines frame reading and writing.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer with the default inbound limit.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize creates a framer with the given inbound limit.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize int) *Framer {
	return &Framer{
		FrameReader: NewFrameReaderWithMaxSize(rw, maxSize),
		FrameWriter: NewFrameWriter(rw),
	}
}

// SetLogger configures capture for both directions.
func (f *Framer) SetLogger(logger log.Logger, lc LogContext) {
	f.FrameReader.SetLogger(logger, lc)
	f.FrameWriter.SetLogger(logger, lc)
}
