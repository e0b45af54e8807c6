package wire

import "errors"

// Codec errors.
var (
	// ErrTruncated indicates the input ended before a complete frame.
	ErrTruncated = errors.New("wire: truncated frame")

	// ErrTrailingData indicates extra bytes after a complete frame.
	ErrTrailingData = errors.New("wire: trailing data after frame")

	// ErrMessageTooLarge indicates a frame larger than the reader allows.
	ErrMessageTooLarge = errors.New("wire: message too large")

	// ErrInvalidMessage indicates a bad sync byte or checksum.
	ErrInvalidMessage = errors.New("wire: invalid sync byte or checksum")

	// ErrIDTooLong indicates an id that does not fit the u16 length prefix.
	ErrIDTooLong = errors.New("wire: id too long")
)
