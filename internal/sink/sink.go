package sink

import (
	"context"
	"errors"
)

var (
	ErrReconnectThrottled = errors.New("sink: reconnect throttled")
	ErrTimeout            = errors.New("sink: operation timed out")
	ErrClosed             = errors.New("sink: closed")
	ErrInvalidConfig      = errors.New("sink: invalid config")
)

// Publisher hands one encoded envelope to a transport. The payload is a
// complete envelope; transports must keep message boundaries.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Close() error
}
