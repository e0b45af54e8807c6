// Package wire implements the framed message format used between bridge
// peers over TCP.
//
// Every frame carries one (id, payload) pair and is self-delimiting on a
// byte stream:
//
//	+------+-----------+-----+------------+---------+----------+
//	| 0xAA | idLen u16 | id  | dataLen u32| payload | checksum |
//	+------+-----------+-----+------------+---------+----------+
//
// Lengths are big-endian. The checksum is the XOR of every id and payload
// byte.
//
// # Validity
//
// A frame whose sync byte or checksum does not match still decodes, so the
// reader stays aligned on the stream. Callers must check [Message.IsValid]
// before treating a decoded message as real traffic.
package wire
