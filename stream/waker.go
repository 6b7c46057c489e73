package stream

// Waker resumes a suspended caller. It must not block.
type Waker interface {
	Wake()
}

type WakerFunc func()

func (f WakerFunc) Wake() {
	f()
}

// chanWaker holds at most one pending wake-up, extra wake-ups are merged.
type chanWaker chan struct{}

func newChanWaker() chanWaker {
	return make(chanWaker, 1)
}

func (w chanWaker) Wake() {
	select {
	case w <- null:
	default:
	}
}

var null struct{}

func wake(ws ...Waker) {
	for _, w := range ws {
		if w != nil {
			w.Wake()
		}
	}
}
