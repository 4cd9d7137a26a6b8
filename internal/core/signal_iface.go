package core

import "errors"

// Frame is one encoded envelope ready for the wire.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Channel abstracts the realtime transport of one connection.
// Owned by the adapter; the adapter must Close() it.
type Channel interface {
	// TrySend queues a frame without blocking. It returns ErrBackpressure when
	// the outbound buffer is full and ErrConnClosed after Close.
	TrySend(Frame) error
	Close()
}
