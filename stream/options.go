package stream

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/yingshulu/wsio/transport"
)

type Option = func(*Options)

func WithHandshakeTimeout(d time.Duration) Option {
	return func(op *Options) {
		op.HandshakeTimeout = d
	}
}

// WithCloseTimeout bounds how long Close waits for the peer to answer the close handshake.
func WithCloseTimeout(d time.Duration) Option {
	return func(op *Options) {
		op.CloseTimeout = d
	}
}

// WithReadLimit set the maximum size of one inbound message
func WithReadLimit(n int64) Option {
	return func(op *Options) {
		op.ReadLimit = n
	}
}

func WithHeader(h http.Header) Option {
	return func(op *Options) {
		op.Header = h
	}
}

// WithDecodeConcurrency set how many messages may be decoded at the same time
func WithDecodeConcurrency(n int64) Option {
	return func(op *Options) {
		op.DecodeConcurrency = n
	}
}

// WithTextMessages accept text messages as stream bytes, by default they are dropped
func WithTextMessages() Option {
	return func(op *Options) {
		op.TextMessages = true
	}
}

// WithSecure use wss:// for addresses given without scheme
func WithSecure() Option {
	return func(op *Options) {
		op.Secure = true
	}
}

func WithCompression() Option {
	return func(op *Options) {
		op.Compression = true
	}
}

func WithDialer(d transport.Dialer) Option {
	return func(op *Options) {
		op.Dialer = d
	}
}

func WithDecoder(d transport.Decoder) Option {
	return func(op *Options) {
		op.Decoder = d
	}
}

// WithLogEntry log connection events through e instead of the standard logger
func WithLogEntry(e *log.Entry) Option {
	return func(op *Options) {
		op.LogEntry = e
	}
}

type Options struct {
	HandshakeTimeout  time.Duration
	CloseTimeout      time.Duration
	ReadLimit         int64
	Header            http.Header
	DecodeConcurrency int64
	TextMessages      bool
	Secure            bool
	Compression       bool
	Dialer            transport.Dialer
	Decoder           transport.Decoder
	LogEntry          *log.Entry
}

func (op *Options) Apply(options []Option) {
	for _, f := range options {
		f(op)
	}
}

func (op *Options) dialer() transport.Dialer {
	if op.Dialer != nil {
		return op.Dialer
	}
	return transport.NewWebSocketDialer(transport.WebSocketConfig{
		HandshakeTimeout:  op.HandshakeTimeout,
		CloseTimeout:      op.CloseTimeout,
		ReadLimit:         op.ReadLimit,
		Header:            op.Header,
		EnableCompression: op.Compression,
		Log:               op.LogEntry,
	})
}

func (op *Options) decoder() transport.Decoder {
	switch {
	case op.Decoder != nil:
		return op.Decoder
	case op.TextMessages:
		return transport.RawDecoder
	}
	return transport.BinaryDecoder
}

func (op *Options) logEntry() *log.Entry {
	if op.LogEntry != nil {
		return op.LogEntry
	}
	return log.NewEntry(log.StandardLogger())
}

func defaultOptions() *Options {
	return &Options{
		HandshakeTimeout:  10 * time.Second,
		CloseTimeout:      5 * time.Second,
		DecodeConcurrency: 16,
	}
}
