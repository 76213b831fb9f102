package modelcache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCallsCreateOnce(t *testing.T) {
	c := New[string, int]()
	var calls atomic.Int32

	create := func() (int, error) {
		calls.Add(1)
		return 42, nil
	}

	v1, err := c.GetOrCreate("a", create)
	require.NoError(t, err)
	v2, err := c.GetOrCreate("a", create)
	require.NoError(t, err)

	assert.Equal(t, 42, v1)
	assert.Equal(t, 42, v2)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestGetOrCreatePropagatesCreateError(t *testing.T) {
	c := New[string, int]()
	_, err := c.GetOrCreate("a", func() (int, error) {
		return 0, fmt.Errorf("load failed")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrCreateConcurrentCallersShareOneBuild(t *testing.T) {
	c := New[string, int]()
	var calls atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCreate("shared", func() (int, error) {
				calls.Add(1)
				return 7, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
