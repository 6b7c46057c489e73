package order

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueReorders(t *testing.T) {
	q := NewQueue()
	q.Push(&Item{Index: 3, Value: "c"})
	q.Push(&Item{Index: 2, Value: "b"})
	require.Nil(t, q.Peek())
	require.Nil(t, q.Pop())
	require.Equal(t, 2, q.Len())

	q.Push(&Item{Index: 1, Value: "a"})

	var got []string
	for it := q.Pop(); it != nil; it = q.Pop() {
		got = append(got, it.Value.(string))
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.Equal(t, 0, q.Len())
}

func TestQueueDiscardsDuplicates(t *testing.T) {
	q := NewQueue()
	q.Push(&Item{Index: 1, Value: "a"})
	q.Push(&Item{Index: 1, Value: "dup"})
	require.Equal(t, 1, q.Len())

	require.Equal(t, "a", q.Pop().Value)

	// already popped
	q.Push(&Item{Index: 1, Value: "late"})
	require.Equal(t, 0, q.Len())
	require.Nil(t, q.Peek())
}

func TestQueueGap(t *testing.T) {
	q := NewQueue()
	q.Push(&Item{Index: 1, Value: "a"})
	q.Push(&Item{Index: 4, Value: "d"})

	require.Equal(t, "a", q.Pop().Value)
	require.Nil(t, q.Peek())

	q.Push(&Item{Index: 2, Value: "b"})
	require.Equal(t, "b", q.Pop().Value)
	require.Nil(t, q.Pop())
	require.Equal(t, 1, q.Len())
}
