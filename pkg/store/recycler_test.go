package store

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotRecycler_LIFO(t *testing.T) {
	s := NewSlotRecycler()

	_, ok := s.Pop()
	assert.False(t, ok)
	_, ok = s.Peek()
	assert.False(t, ok)

	s.Push(1)
	s.Push(5)
	s.Push(3)
	assert.Equal(t, 3, s.Len())

	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, 3, top)
	assert.Equal(t, 3, s.Len(), "peek must not remove")

	for _, want := range []int{3, 5, 1} {
		got, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok = s.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestSlotRecycler_Concurrent(t *testing.T) {
	s := NewSlotRecycler()
	const workers = 8
	const perWorker = 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.Push(base*perWorker + i)
			}
		}(w)
	}
	wg.Wait()
	require.Equal(t, workers*perWorker, s.Len())

	var mu sync.Mutex
	var popped []int
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var local []int
			for {
				n, ok := s.Pop()
				if !ok {
					break
				}
				local = append(local, n)
			}
			mu.Lock()
			popped = append(popped, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(popped)
	require.Len(t, popped, workers*perWorker)
	for i, n := range popped {
		if n != i {
			t.Fatalf("slot %d popped as %d: lost or duplicated", i, n)
		}
	}
}
