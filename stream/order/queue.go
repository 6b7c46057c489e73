package order

func NewQueue() Queue {
	return &list{
		head: newNode(nil, nil),
	}
}

// Item is one entry of the queue, Index starts at 1 and has no gaps.
type Item struct {
	Index uint64
	Value interface{}
}

type Queue interface {
	// Push item into sorted queue
	// any duplicated item will be discarded
	Push(item *Item)

	// Peek next item in index order, nil while it has not arrived yet
	Peek() *Item

	// Pop next item in index order
	Pop() *Item

	// Len of items waiting in queue, including the ones behind a gap
	Len() int
}

type node struct {
	next *node
	item *Item
}

func newNode(it *Item, next *node) *node {
	return &node{
		item: it,
		next: next,
	}
}

type list struct {
	head   *node
	popped uint64
	size   int
}

func (l *list) Push(it *Item) {
	// already delivered, discard
	if it.Index <= l.popped {
		return
	}
	curr := l.head.next
	prev := l.head

	for curr != nil {
		if it.Index < curr.item.Index {
			prev.next = newNode(it, curr)
			l.size++
			return
		} else if it.Index == curr.item.Index {
			// duplicated item, discard
			return
		} else {
			prev = curr
			curr = curr.next
		}
	}

	prev.next = newNode(it, nil)
	l.size++
}

func (l *list) first() *node {
	return l.head.next
}

func (l *list) Peek() *Item {
	if f := l.first(); f != nil && f.item.Index == l.popped+1 {
		return f.item
	}
	return nil
}

func (l *list) Pop() *Item {
	it := l.Peek()
	if it == nil {
		return nil
	}
	l.popped = it.Index
	l.head.next = l.first().next
	l.size--
	return it
}

func (l *list) Len() int {
	return l.size
}
