package syncmap_test

import (
	"sync"
	"testing"

	"oss.terrastruct.com/util-go/assert"

	"oss.terrastruct.com/mathtext/lib/syncmap"
)

func TestSyncMap(t *testing.T) {
	t.Parallel()

	sm := syncmap.New[string, int]()
	sm.Set("a", 1)
	sm.Set("b", 2)

	v, ok := sm.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 0, sm.Get("missing"))
	assert.Equal(t, 2, sm.Len())

	sm.Delete("a")
	_, ok = sm.Lookup("a")
	assert.True(t, !ok)

	sm.Clear()
	assert.Equal(t, 0, sm.Len())
}

func TestSyncMapConcurrent(t *testing.T) {
	t.Parallel()

	sm := syncmap.New[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sm.Set(i%8, i)
			sm.Get(i % 8)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, sm.Len())
}
