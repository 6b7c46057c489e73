package stream

import (
	"github.com/pkg/errors"
)

// ErrConnectionClosed is returned by operations attempted after the
// connection was closed.
var ErrConnectionClosed = errors.New("connection closed")

// ConnectionError is a failure reported by the transport. It is surfaced
// once per half, afterwards the connection behaves as closed.
type ConnectionError struct {
	Message string
	Err     error
}

func newConnectionError(err error) *ConnectionError {
	return &ConnectionError{Message: err.Error(), Err: err}
}

func (e *ConnectionError) Error() string {
	return "connection error: " + e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
