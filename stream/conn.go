// Package stream adapts a message oriented transport to byte streams.
//
// A Conn is split into a ReadHalf (io.Reader) and a WriteHalf (io.WriteCloser)
// sharing one connection state. Message boundaries are not preserved: the
// reader sees the concatenation of all received payloads in arrival order.
package stream

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/yingshulu/wsio/transport"
)

type Conn struct {
	id     string
	addr   string
	s      *state
	sock   transport.Socket
	events *eventAdapter
	log    *log.Entry
	split  int32
}

// Connect dials addr and returns once the transport is open. An address
// without scheme is dialed as ws://addr, or wss://addr with WithSecure.
// Failure to establish the transport is returned as *ConnectionError.
func Connect(ctx context.Context, addr string, options ...Option) (*Conn, error) {
	c, err := dial(addr, options...)
	if err != nil {
		return nil, err
	}

	select {
	case <-c.s.settled:
	case <-ctx.Done():
		c.sock.Close()
		return nil, errors.Wrapf(ctx.Err(), "connect %s", c.addr)
	}

	if err := c.openErr(); err != nil {
		return nil, err
	}
	return c, nil
}

// dial registers the event adapter with a new transport and returns without
// waiting for it to open.
func dial(addr string, options ...Option) (*Conn, error) {
	op := defaultOptions()
	op.Apply(options)

	c := &Conn{
		id:   uuid.NewString(),
		addr: normalizeAddr(addr, op.Secure),
		s:    newState(),
	}
	c.log = op.logEntry().WithFields(log.Fields{
		"Name": "Connection",
		"ID":   c.id,
		"Addr": c.addr,
	})
	c.events = newEventAdapter(c.s, op.decoder(), op.DecodeConcurrency, c.log)

	sock, err := op.dialer().Dial(c.addr, c.events)
	if err != nil {
		c.log.Warn("dial err: ", err)
		return nil, newConnectionError(err)
	}
	c.sock = sock
	return c, nil
}

func (c *Conn) openErr() error {
	s := c.s
	s.lock.Lock()
	defer s.lock.Unlock()

	switch s.lifecycle {
	case errored:
		return s.err
	case closed:
		return newConnectionError(errors.Errorf("transport %s closed before open", c.addr))
	}
	return nil
}

func normalizeAddr(addr string, secure bool) string {
	if strings.Contains(addr, "://") {
		return addr
	}
	if secure {
		return "wss://" + addr
	}
	return "ws://" + addr
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Addr() string {
	return c.addr
}

// Split returns the two halves of the connection. It may be called once.
func (c *Conn) Split() (*ReadHalf, *WriteHalf) {
	if !atomic.CompareAndSwapInt32(&c.split, 0, 1) {
		panic("stream: connection " + c.id + " split twice")
	}
	return newReadHalf(c), newWriteHalf(c)
}
