package stream

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yingshulu/wsio/transport"
)

// mockSocket records sends and reports close synchronously.
type mockSocket struct {
	h transport.Handler

	lock    sync.Mutex
	sent    [][]byte
	closed  bool
	sendErr error

	// holdClose leaves reporting OnClose to the test
	holdClose bool
}

func (m *mockSocket) Send(data []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, append([]byte(nil), data...))
	return nil
}

func (m *mockSocket) Close() error {
	m.lock.Lock()
	already := m.closed
	m.closed = true
	m.lock.Unlock()
	if !already && !m.holdClose {
		m.h.OnClose()
	}
	return nil
}

func (m *mockSocket) Sent() [][]byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.sent
}

func (m *mockSocket) IsClosed() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.closed
}

func (m *mockSocket) message(data ...byte) {
	m.h.OnMessage(transport.Blob{Type: transport.BinaryMessage, Data: data})
}

func newMockConn(t *testing.T, options ...Option) (*Conn, *mockSocket) {
	m := &mockSocket{}
	d := transport.DialerFunc(func(addr string, h transport.Handler) (transport.Socket, error) {
		m.h = h
		return m, nil
	})
	c, err := dial("mock:9000", append(options, WithDialer(d))...)
	require.NoError(t, err)
	return c, m
}

func newOpenConn(t *testing.T, options ...Option) (*ReadHalf, *WriteHalf, *mockSocket) {
	c, m := newMockConn(t, options...)
	m.h.OnOpen()
	r, w := c.Split()
	return r, w, m
}

type countWaker struct {
	n int32
}

func (w *countWaker) Wake() {
	atomic.AddInt32(&w.n, 1)
}

func (w *countWaker) Count() int32 {
	return atomic.LoadInt32(&w.n)
}

func waitBuffered(t *testing.T, r *ReadHalf, n int) {
	require.Eventually(t, func() bool {
		return r.Buffered() == n
	}, waitFor, tick)
}
