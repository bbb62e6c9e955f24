package symbolicate

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	imageA = uuid.MustParse("219132bb-c2d0-3cc9-aabd-d0df0ed9ab2d")
	imageB = uuid.MustParse("548e9f2c-fc1a-3c82-acc9-c4461469beec")
)

func TestCacheGetOrCompute(t *testing.T) {
	c := NewCache(2)

	var calls int
	compute := func() (string, error) {
		calls++
		return "/archive/dSYMs/A.dSYM", nil
	}

	for range 3 {
		path, err := c.GetOrCompute(imageA, compute)
		require.NoError(t, err)
		assert.Equal(t, "/archive/dSYMs/A.dSYM", path)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get(imageB)
	assert.False(t, ok)
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	c := NewCache(1)
	boom := errors.New("boom")

	_, err := c.GetOrCompute(imageA, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get(imageA)
	assert.False(t, ok)

	path, err := c.GetOrCompute(imageA, func() (string, error) { return "/a", nil })
	require.NoError(t, err)
	assert.Equal(t, "/a", path)
}

func TestCacheConcurrent(t *testing.T) {
	c := NewCache(4)

	var calls atomic.Int32
	compute := func() (string, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return "/b", nil
	}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path, err := c.GetOrCompute(imageB, compute)
			assert.NoError(t, err)
			assert.Equal(t, "/b", path)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestNewCacheMinimumSize(t *testing.T) {
	c := NewCache(0)
	_, err := c.GetOrCompute(imageA, func() (string, error) { return "/a", nil })
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}
