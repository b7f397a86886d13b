// Package framelog records raw CAN traffic to a rotating CBOR log.
//
// The receiver and sender each hold an optional *Logger; when frame logging
// is disabled the pointer stays nil and every call is a no-op. Events carry
// the frame identifier, payload bytes, direction, and any decode error, so a
// capture can be replayed against a protocol table offline with Reader.
package framelog
