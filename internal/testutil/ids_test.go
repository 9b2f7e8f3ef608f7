package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedIDs_ReturnsInOrder(t *testing.T) {
	gen := NewFixedIDs("h-1", "h-2")

	assert.Equal(t, "h-1", gen.Next())
	assert.Equal(t, "h-2", gen.Next())
	assert.Panics(t, func() { gen.Next() })
}

func TestSequentialIDs_ConcurrentUnique(t *testing.T) {
	gen := NewSequentialIDs("h")

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Next()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, 50)
}

func TestManualExecutor_RunsInOrderAndRejects(t *testing.T) {
	exec := NewManualExecutor("ui")
	var got []int

	assert.True(t, exec.Schedule(func() { got = append(got, 1) }))
	assert.True(t, exec.Schedule(func() { got = append(got, 2) }))
	exec.Reject(true)
	assert.False(t, exec.Schedule(func() { got = append(got, 3) }))

	assert.Equal(t, 2, exec.Pending())
	assert.Equal(t, 3, exec.Attempts())
	assert.Equal(t, 2, exec.RunAll())
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, "ui", exec.String())
}
