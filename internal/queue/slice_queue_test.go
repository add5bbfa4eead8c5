package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fragItem stands in for the display fragments buffered by the session.
type fragItem struct {
	index int
}

func TestSliceQueue(t *testing.T) {
	assert := assert.New(t)

	t.Run("Empty Queue", func(t *testing.T) {
		q := NewSliceQueue(1)

		assert.True(q.IsEmpty())
		assert.Equal(0, q.Length())
		assert.Nil(q.Dequeue())
		assert.Nil(q.Peek())
	})

	t.Run("Enqueue and Dequeue", func(t *testing.T) {
		q := NewSliceQueue(1)

		item1 := &fragItem{1}
		q.Enqueue(item1)
		assert.False(q.IsEmpty())
		assert.Equal(1, q.Length())

		item2 := &fragItem{2}
		q.Enqueue(item2)
		assert.Equal(2, q.Length())

		assert.Equal(item1, q.Dequeue())
		assert.Equal(1, q.Length())

		assert.Equal(item2, q.Dequeue())
		assert.True(q.IsEmpty())

		assert.Nil(q.Dequeue())
		assert.True(q.IsEmpty())
	})

	t.Run("Peek", func(t *testing.T) {
		q := NewSliceQueue(1)

		item1 := &fragItem{1}
		item2 := &fragItem{2}
		q.Enqueue(item1)

		assert.Equal(item1, q.Peek())
		assert.Equal(1, q.Length()) // Length should not change after peek

		q.Enqueue(item2)

		assert.Equal(item1, q.Peek())
		assert.Equal(2, q.Length())

		q.Dequeue()
		assert.Equal(item2, q.Peek())
		assert.Equal(1, q.Length())

		q.Dequeue()
		assert.Nil(q.Peek())
		assert.Equal(0, q.Length())
	})

	t.Run("Reset", func(t *testing.T) {
		q := NewSliceQueue(4)

		for i := 0; i < 4; i++ {
			q.Enqueue(&fragItem{i})
		}
		assert.Equal(4, q.Length())

		q.Reset()
		assert.True(q.IsEmpty())
		assert.Nil(q.Dequeue())
	})

	t.Run("Concurrency", func(t *testing.T) {
		var mu sync.Mutex
		q := NewSliceQueue(1)

		var wg sync.WaitGroup
		for i := 0; i < 1000; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				mu.Lock()
				q.Enqueue(&fragItem{i})
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		assert.Equal(1000, q.Length())

		wg.Add(1000)
		for i := 0; i < 1000; i++ {
			go func() {
				defer wg.Done()
				mu.Lock()
				q.Dequeue()
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.True(q.IsEmpty())
	})
}
