// Package transport
package transport

import "context"

// Handler receives transport notifications. A transport invokes it from a
// single goroutine, in the order the events happened on the wire.
// OnClose is always the last notification, including after OnError.
type Handler interface {
	OnOpen()
	OnMessage(b Blob)
	OnError(err error)
	OnClose()
}

// Socket is the handle of a transport that is establishing or established.
type Socket interface {
	// Send hands one whole message to the transport and does not retain
	// data after returning. It fails before the transport is open.
	Send(data []byte) error

	// Close starts closing the transport. OnClose follows, even when
	// Close reports an error.
	Close() error
}

// Dialer creates sockets. Dial returns the handle immediately, the outcome
// of the connection establishment is reported through h.
type Dialer interface {
	Dial(addr string, h Handler) (Socket, error)
}

type DialerFunc func(addr string, h Handler) (Socket, error)

func (f DialerFunc) Dial(addr string, h Handler) (Socket, error) {
	return f(addr, h)
}

type MessageType int

const (
	TextMessage MessageType = iota + 1
	BinaryMessage
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	}
	return "unknown"
}

// Blob is the opaque payload of one message event.
type Blob struct {
	Type MessageType
	Data []byte
}

// Decoder turns a blob into bytes. A nil result with a nil error drops the
// message.
type Decoder interface {
	Decode(ctx context.Context, b Blob) ([]byte, error)
}

type DecoderFunc func(ctx context.Context, b Blob) ([]byte, error)

func (f DecoderFunc) Decode(ctx context.Context, b Blob) ([]byte, error) {
	return f(ctx, b)
}

// BinaryDecoder passes binary payloads through and drops all other messages.
var BinaryDecoder Decoder = DecoderFunc(func(_ context.Context, b Blob) ([]byte, error) {
	if b.Type != BinaryMessage {
		return nil, nil
	}
	return b.Data, nil
})

// RawDecoder passes text and binary payloads through unchanged.
var RawDecoder Decoder = DecoderFunc(func(_ context.Context, b Blob) ([]byte, error) {
	return b.Data, nil
})
