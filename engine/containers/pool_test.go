package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAllocFree(t *testing.T) {
	p := NewPool[int](4)

	h := p.Alloc()
	require.True(t, h.IsValid())
	assert.Equal(t, 1, p.Count())
	assert.True(t, p.IsValid(h))

	*p.Get(h) = 42
	assert.Equal(t, 42, *p.Get(h))

	assert.True(t, p.Free(h))
	assert.Equal(t, 0, p.Count())
	assert.False(t, p.IsValid(h))
	assert.Nil(t, p.Get(h))
}

func TestPoolStaleHandleAfterReuse(t *testing.T) {
	p := NewPool[string](4)

	h1 := p.Alloc()
	require.True(t, p.Free(h1))

	// The slot is recycled with a bumped generation.
	h2 := p.Alloc()
	assert.Equal(t, h1.Index, h2.Index)
	assert.NotEqual(t, h1.Generation, h2.Generation)

	assert.False(t, p.IsValid(h1))
	assert.Nil(t, p.Get(h1))
	assert.True(t, p.IsValid(h2))
}

func TestPoolGrowthPreservesItems(t *testing.T) {
	p := NewPool[int](2)

	handles := make([]Handle, 0, 100)
	for i := 0; i < 100; i++ {
		h := p.Alloc()
		require.True(t, h.IsValid())
		*p.Get(h) = i
		handles = append(handles, h)
	}

	assert.Equal(t, 100, p.Count())
	assert.GreaterOrEqual(t, p.Capacity(), uint32(100))
	for i, h := range handles {
		require.True(t, p.IsValid(h))
		assert.Equal(t, i, *p.Get(h))
	}
}

func TestPoolDoubleFree(t *testing.T) {
	p := NewPool[int](4)
	h := p.Alloc()
	assert.True(t, p.Free(h))
	assert.False(t, p.Free(h))
	assert.Equal(t, 0, p.Count())
}

func TestPoolReusedSlotIsZeroed(t *testing.T) {
	p := NewPool[[4]byte](2)

	h := p.Alloc()
	*p.Get(h) = [4]byte{1, 2, 3, 4}
	p.Free(h)

	h2 := p.Alloc()
	assert.Equal(t, [4]byte{}, *p.Get(h2))
}

func TestPoolForEach(t *testing.T) {
	p := NewPool[int](8)

	var hs []Handle
	for i := 0; i < 5; i++ {
		h := p.Alloc()
		*p.Get(h) = i * 10
		hs = append(hs, h)
	}
	p.Free(hs[2])

	seen := map[int]bool{}
	p.ForEach(func(index uint32, item *int) bool {
		seen[*item] = true
		return true
	})
	assert.Len(t, seen, 4)
	assert.False(t, seen[20])
}

func TestPoolHandleAt(t *testing.T) {
	p := NewPool[int](4)
	h := p.Alloc()

	got := p.HandleAt(h.Index)
	assert.Equal(t, h, got)

	p.Free(h)
	assert.False(t, p.HandleAt(h.Index).IsValid())
	assert.False(t, p.HandleAt(9999).IsValid())
}

func TestInvalidHandle(t *testing.T) {
	assert.False(t, InvalidHandle().IsValid())

	p := NewPool[int](4)
	assert.False(t, p.IsValid(InvalidHandle()))
	assert.Nil(t, p.Get(InvalidHandle()))
}
