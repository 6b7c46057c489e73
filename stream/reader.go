package stream

import (
	"bytes"
	"context"
	"io"
)

// ReadHalf is the pull side of a connection. It is not safe for concurrent
// reads: a second suspended read displaces the wake-up of the first.
type ReadHalf struct {
	c     *Conn
	s     *state
	waker chanWaker
}

var (
	_ io.Reader     = (*ReadHalf)(nil)
	_ io.ByteReader = (*ReadHalf)(nil)
)

func newReadHalf(c *Conn) *ReadHalf {
	return &ReadHalf{
		c:     c,
		s:     c.s,
		waker: newChanWaker(),
	}
}

// PollRead copies buffered bytes into p without blocking. When nothing is
// buffered and the connection is still live, it stores w, returns ready
// false and w is invoked once there is something to observe. At end of
// stream it returns io.EOF, a transport failure is returned once as
// *ConnectionError before that.
func (r *ReadHalf) PollRead(p []byte, w Waker) (n int, ready bool, err error) {
	if len(p) == 0 {
		return 0, true, nil
	}

	s := r.s
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.size > 0 {
		return s.copyOut(p), true, nil
	}

	switch s.lifecycle {
	case closed:
		return 0, true, io.EOF
	case errored:
		return 0, true, s.readError()
	}
	s.readWaker = w
	return 0, false, nil
}

func (r *ReadHalf) Read(p []byte) (int, error) {
	return r.ReadContext(context.Background(), p)
}

// ReadContext is Read bounded by ctx. A cancelled read consumes nothing.
func (r *ReadHalf) ReadContext(ctx context.Context, p []byte) (int, error) {
	for {
		n, ready, err := r.PollRead(p, r.waker)
		if ready {
			return n, err
		}
		if err := r.wait(ctx); err != nil {
			return 0, err
		}
	}
}

func (r *ReadHalf) wait(ctx context.Context) error {
	select {
	case <-r.waker:
	case <-r.s.terminal:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// pollFill returns the unread part of the oldest buffered chunk. The slice
// stays valid until consume is called.
func (r *ReadHalf) pollFill(w Waker) (chunk []byte, ready bool, err error) {
	s := r.s
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.size > 0 {
		return s.peek(), true, nil
	}

	switch s.lifecycle {
	case closed:
		return nil, true, io.EOF
	case errored:
		return nil, true, s.readError()
	}
	s.readWaker = w
	return nil, false, nil
}

func (r *ReadHalf) fill(ctx context.Context) ([]byte, error) {
	for {
		chunk, ready, err := r.pollFill(r.waker)
		if ready {
			return chunk, err
		}
		if err := r.wait(ctx); err != nil {
			return nil, err
		}
	}
}

func (r *ReadHalf) consume(n int) {
	r.s.lock.Lock()
	r.s.consume(n)
	r.s.lock.Unlock()
}

func (r *ReadHalf) ReadByte() (byte, error) {
	chunk, err := r.fill(context.Background())
	if err != nil {
		return 0, err
	}
	b := chunk[0]
	r.consume(1)
	return b, nil
}

// ReadUntil appends to dst up to and including the first delim byte. Bytes
// after the delimiter stay buffered. If the stream ends first it returns the
// bytes read so far with the terminating error, like bufio.Reader.ReadBytes.
func (r *ReadHalf) ReadUntil(delim byte, dst []byte) ([]byte, error) {
	return r.ReadUntilContext(context.Background(), delim, dst)
}

func (r *ReadHalf) ReadUntilContext(ctx context.Context, delim byte, dst []byte) ([]byte, error) {
	for {
		chunk, err := r.fill(ctx)
		if err != nil {
			return dst, err
		}
		if i := bytes.IndexByte(chunk, delim); i >= 0 {
			dst = append(dst, chunk[:i+1]...)
			r.consume(i + 1)
			return dst, nil
		}
		dst = append(dst, chunk...)
		r.consume(len(chunk))
	}
}

// Buffered reports how many received bytes wait to be read.
func (r *ReadHalf) Buffered() int {
	return r.s.buffered()
}

func (r *ReadHalf) Conn() *Conn {
	return r.c
}
