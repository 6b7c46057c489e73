package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/yingshulu/wsio/stream/order"
	"github.com/yingshulu/wsio/transport"
	"golang.org/x/sync/semaphore"
)

type eventKind int

const (
	openEvent eventKind = iota
	messageEvent
	errorEvent
	closeEvent
)

type event struct {
	kind eventKind
	data []byte
	err  error
}

// eventAdapter receives transport notifications and applies them to the
// shared state. Every notification takes a sequence number on arrival and is
// applied in that order, even when message decoding completes out of order.
type eventAdapter struct {
	s       *state
	decoder transport.Decoder
	sem     *semaphore.Weighted
	log     *log.Entry

	ctx    context.Context
	cancel context.CancelFunc

	seq   uint64
	lock  sync.Mutex
	queue order.Queue
}

var _ transport.Handler = (*eventAdapter)(nil)

func newEventAdapter(s *state, decoder transport.Decoder, concurrency int64, entry *log.Entry) *eventAdapter {
	if concurrency <= 0 {
		concurrency = 1
	}
	a := &eventAdapter{
		s:       s,
		decoder: decoder,
		sem:     semaphore.NewWeighted(concurrency),
		log:     entry,
		queue:   order.NewQueue(),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a
}

func (a *eventAdapter) next() uint64 {
	return atomic.AddUint64(&a.seq, 1)
}

func (a *eventAdapter) OnOpen() {
	a.complete(a.next(), &event{kind: openEvent})
}

func (a *eventAdapter) OnMessage(b transport.Blob) {
	seq := a.next()
	if err := a.sem.Acquire(a.ctx, 1); err != nil {
		// nothing can read it any more, keep the sequence gapless
		a.complete(seq, &event{kind: messageEvent})
		return
	}

	go func() {
		defer a.sem.Release(1)
		data, err := a.decoder.Decode(a.ctx, b)
		if err != nil {
			a.complete(seq, &event{kind: errorEvent, err: errors.Wrapf(err, "decode %s message", b.Type)})
			return
		}
		a.complete(seq, &event{kind: messageEvent, data: data})
	}()
}

func (a *eventAdapter) OnError(err error) {
	a.complete(a.next(), &event{kind: errorEvent, err: err})
}

func (a *eventAdapter) OnClose() {
	a.complete(a.next(), &event{kind: closeEvent})
}

func (a *eventAdapter) complete(seq uint64, ev *event) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.queue.Push(&order.Item{Index: seq, Value: ev})
	for it := a.queue.Pop(); it != nil; it = a.queue.Pop() {
		a.apply(it.Value.(*event))
	}
}

func (a *eventAdapter) apply(ev *event) {
	switch ev.kind {
	case openEvent:
		a.onOpen()
	case messageEvent:
		a.onMessage(ev.data)
	case errorEvent:
		a.onError(ev.err)
	case closeEvent:
		a.onClose()
		// every earlier event has been applied, nothing follows close
		a.cancel()
	}
}

func (a *eventAdapter) onOpen() {
	s := a.s
	s.lock.Lock()
	if s.lifecycle != connecting {
		s.lock.Unlock()
		return
	}
	s.transit(open)
	w := s.takeWriteWaker()
	s.lock.Unlock()

	a.log.Info("connection open")
	wake(w)
}

func (a *eventAdapter) onMessage(data []byte) {
	if len(data) == 0 {
		return
	}
	s := a.s
	s.lock.Lock()
	if s.isTerminal() {
		// nothing is delivered after an error or close
		s.lock.Unlock()
		a.log.Debugf("drop %d bytes after %s", len(data), s.lifecycle)
		return
	}
	s.push(data)
	w := s.takeReadWaker()
	s.lock.Unlock()

	a.log.Debugf("message %d bytes buffered", len(data))
	wake(w)
}

func (a *eventAdapter) onError(err error) {
	if err == nil {
		err = errors.New("unknown transport error")
	}
	s := a.s
	s.lock.Lock()
	if s.isTerminal() {
		s.lock.Unlock()
		return
	}
	if s.err == nil {
		s.err = newConnectionError(err)
	}
	s.transit(errored)
	rw, ww := s.takeReadWaker(), s.takeWriteWaker()
	s.lock.Unlock()

	a.log.Warn("connection error: ", err)
	wake(rw, ww)
}

func (a *eventAdapter) onClose() {
	s := a.s
	s.lock.Lock()
	if s.isTerminal() {
		s.lock.Unlock()
		return
	}
	s.transit(closed)
	rw, ww := s.takeReadWaker(), s.takeWriteWaker()
	s.lock.Unlock()

	a.log.Info("connection closed")
	wake(rw, ww)
}
