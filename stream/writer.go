package stream

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/yingshulu/wsio/transport"
)

// WriteHalf is the push side of a connection. Each successful write is sent
// as one transport message.
type WriteHalf struct {
	c     *Conn
	s     *state
	sock  transport.Socket
	waker chanWaker
}

var _ io.WriteCloser = (*WriteHalf)(nil)

func newWriteHalf(c *Conn) *WriteHalf {
	return &WriteHalf{
		c:     c,
		s:     c.s,
		sock:  c.sock,
		waker: newChanWaker(),
	}
}

// PollWrite sends p once the connection is open. While connecting it stores
// w and returns ready false. After a transport failure the first write gets
// the *ConnectionError, later ones ErrConnectionClosed.
func (wh *WriteHalf) PollWrite(p []byte, w Waker) (n int, ready bool, err error) {
	s := wh.s
	s.lock.Lock()
	switch s.lifecycle {
	case connecting:
		s.writeWaker = w
		s.lock.Unlock()
		return 0, false, nil
	case closing, closed:
		s.lock.Unlock()
		return 0, true, ErrConnectionClosed
	case errored:
		err = s.writeError()
		s.lock.Unlock()
		return 0, true, err
	}

	if len(p) == 0 {
		s.lock.Unlock()
		return 0, true, nil
	}
	s.outbound += len(p)
	s.lock.Unlock()

	sendErr := wh.sock.Send(p)

	s.lock.Lock()
	s.outbound -= len(p)
	var fw Waker
	if s.outbound == 0 {
		fw = s.takeWriteWaker()
	}
	s.lock.Unlock()
	wake(fw)

	if errors.Is(sendErr, transport.ErrClosing) {
		return 0, true, ErrConnectionClosed
	}
	if sendErr != nil {
		// this writer gets the failure now, the state follows in event order
		s.lock.Lock()
		s.writeSurfaced = true
		s.lock.Unlock()
		wh.c.events.OnError(sendErr)
		return 0, true, newConnectionError(sendErr)
	}
	return len(p), true, nil
}

// PollFlush is ready once no Send is in flight. Send hands the message to
// the transport synchronously and the peer's acknowledgement is not
// observable, so a writer flushing after its own writes never waits.
func (wh *WriteHalf) PollFlush(w Waker) (ready bool, err error) {
	s := wh.s
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.outbound == 0 || s.isTerminal() {
		return true, nil
	}
	s.writeWaker = w
	return false, nil
}

// PollClose asks the transport to close and is ready once the connection is
// closed. It never reports the pending transport error.
func (wh *WriteHalf) PollClose(w Waker) (ready bool, err error) {
	s := wh.s
	s.lock.Lock()
	switch s.lifecycle {
	case closed, errored:
		s.lock.Unlock()
		return true, nil
	case connecting, closing:
		s.writeWaker = w
		s.lock.Unlock()
		return false, nil
	}

	s.transit(closing)
	s.writeWaker = w
	s.lock.Unlock()

	wh.c.log.Info("closing connection")
	if err := wh.sock.Close(); err != nil {
		// the transport still reports close
		wh.c.log.Warn("close transport err: ", err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	return s.isTerminal(), nil
}

func (wh *WriteHalf) Write(p []byte) (int, error) {
	return wh.WriteContext(context.Background(), p)
}

// WriteContext is Write bounded by ctx. It only waits while the connection
// is opening, a cancelled write sends nothing.
func (wh *WriteHalf) WriteContext(ctx context.Context, p []byte) (int, error) {
	for {
		n, ready, err := wh.PollWrite(p, wh.waker)
		if ready {
			return n, err
		}
		if err := wh.wait(ctx); err != nil {
			return 0, err
		}
	}
}

func (wh *WriteHalf) Flush() error {
	for {
		ready, err := wh.PollFlush(wh.waker)
		if ready {
			return err
		}
		if err := wh.wait(context.Background()); err != nil {
			return err
		}
	}
}

func (wh *WriteHalf) Close() error {
	return wh.CloseContext(context.Background())
}

// CloseContext closes the connection and waits until the transport reports
// it closed or ctx is done.
func (wh *WriteHalf) CloseContext(ctx context.Context) error {
	for {
		ready, err := wh.PollClose(wh.waker)
		if ready {
			return err
		}
		if err := wh.wait(ctx); err != nil {
			return err
		}
	}
}

func (wh *WriteHalf) wait(ctx context.Context) error {
	select {
	case <-wh.waker:
	case <-wh.s.terminal:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (wh *WriteHalf) Conn() *Conn {
	return wh.c
}
