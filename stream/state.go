package stream

import (
	"io"
	"sync"
)

type lifecycle int

const (
	connecting lifecycle = iota
	open
	closing
	closed
	errored
)

func (l lifecycle) String() string {
	switch l {
	case connecting:
		return "connecting"
	case open:
		return "open"
	case closing:
		return "closing"
	case closed:
		return "closed"
	case errored:
		return "errored"
	}
	return "unknown"
}

// state is shared by the event adapter and both halves of one connection.
// Every field is guarded by lock, and no I/O happens while it is held.
type state struct {
	lock      sync.Mutex
	lifecycle lifecycle

	// inbound chunks in arrival order, cursor points into inbound[0]
	inbound   [][]byte
	cursor    int
	size      int
	readWaker Waker

	// bytes handed to the transport whose Send has not returned yet
	outbound   int
	writeWaker Waker

	err           *ConnectionError
	readSurfaced  bool
	writeSurfaced bool

	settled  chan struct{}
	terminal chan struct{}
}

func newState() *state {
	return &state{
		lifecycle: connecting,
		settled:   make(chan struct{}),
		terminal:  make(chan struct{}),
	}
}

// transit moves the lifecycle forward, callers check the transition is legal.
func (s *state) transit(to lifecycle) {
	from := s.lifecycle
	s.lifecycle = to
	if from == connecting {
		close(s.settled)
	}
	if to == closed || to == errored {
		close(s.terminal)
	}
}

func (s *state) isTerminal() bool {
	return s.lifecycle == closed || s.lifecycle == errored
}

func (s *state) push(chunk []byte) {
	s.inbound = append(s.inbound, chunk)
	s.size += len(chunk)
}

func (s *state) peek() []byte {
	if len(s.inbound) == 0 {
		return nil
	}
	return s.inbound[0][s.cursor:]
}

// consume n bytes of the oldest chunk, n must not exceed len(s.peek()).
func (s *state) consume(n int) {
	s.cursor += n
	s.size -= n
	if s.cursor == len(s.inbound[0]) {
		s.inbound[0] = nil
		s.inbound = s.inbound[1:]
		s.cursor = 0
	}
}

func (s *state) copyOut(p []byte) int {
	n := 0
	for n < len(p) && s.size > 0 {
		c := copy(p[n:], s.peek())
		s.consume(c)
		n += c
	}
	return n
}

func (s *state) buffered() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.size
}

func (s *state) current() lifecycle {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lifecycle
}

func (s *state) takeReadWaker() Waker {
	w := s.readWaker
	s.readWaker = nil
	return w
}

func (s *state) takeWriteWaker() Waker {
	w := s.writeWaker
	s.writeWaker = nil
	return w
}

// readError reports the pending error to the first reader, later readers see EOF.
func (s *state) readError() error {
	if s.err != nil && !s.readSurfaced {
		s.readSurfaced = true
		return s.err
	}
	return io.EOF
}

// writeError reports the pending error to the first writer, later writers see
// ErrConnectionClosed.
func (s *state) writeError() error {
	if s.err != nil && !s.writeSurfaced {
		s.writeSurfaced = true
		return s.err
	}
	return ErrConnectionClosed
}
