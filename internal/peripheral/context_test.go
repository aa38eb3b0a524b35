package peripheral

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Organization5762/heart/internal/event"
)

func newTestContext(resources map[string]Resolver) *Context {
	bus := event.NewBus(event.WithLogger(zerolog.Nop()), event.WithMetrics(false))
	def := Definition{Name: "test"}
	return newContext("id", def, newResourceView(resources), bus, zerolog.Nop(), false)
}

func TestResourceMemoized(t *testing.T) {
	calls := 0
	c := newTestContext(map[string]Resolver{
		"counter": func(*Context) (any, error) {
			calls++
			return calls, nil
		},
	})

	for i := 0; i < 3; i++ {
		v, err := c.Resource("counter")
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	}
	assert.Equal(t, 1, calls)
}

func TestResourceRecursive(t *testing.T) {
	baseCalls := 0
	c := newTestContext(map[string]Resolver{
		"base": func(*Context) (any, error) {
			baseCalls++
			return 10, nil
		},
		"double": func(c *Context) (any, error) {
			v, err := ResourceAs[int](c, "base")
			return v * 2, err
		},
		"sum": func(c *Context) (any, error) {
			a, err := ResourceAs[int](c, "base")
			if err != nil {
				return nil, err
			}
			b, err := ResourceAs[int](c, "double")
			return a + b, err
		},
	})

	v, err := ResourceAs[int](c, "sum")
	require.NoError(t, err)
	assert.Equal(t, 30, v)
	assert.Equal(t, 1, baseCalls)
}

func TestUnknownResource(t *testing.T) {
	c := newTestContext(map[string]Resolver{
		"needs_missing": func(c *Context) (any, error) { return c.Resource("missing") },
	})

	_, err := c.Resource("missing")
	require.ErrorIs(t, err, ErrUnknownResource)

	_, err = c.Resource("needs_missing")
	require.ErrorIs(t, err, ErrUnknownResource)
}

func TestResourceCycle(t *testing.T) {
	c := newTestContext(map[string]Resolver{
		"a":    func(c *Context) (any, error) { return c.Resource("b") },
		"b":    func(c *Context) (any, error) { return c.Resource("a") },
		"self": func(c *Context) (any, error) { return c.Resource("self") },
	})

	_, err := c.Resource("a")
	require.ErrorIs(t, err, ErrResourceCycle)
	assert.Contains(t, err.Error(), "a -> b -> a")

	_, err = c.Resource("self")
	require.ErrorIs(t, err, ErrResourceCycle)
}

func TestFailedResolutionIsRetried(t *testing.T) {
	fail := true
	c := newTestContext(map[string]Resolver{
		"flaky": func(*Context) (any, error) {
			if fail {
				return nil, errors.New("not ready")
			}
			return "ok", nil
		},
	})

	_, err := c.Resource("flaky")
	require.Error(t, err)

	fail = false
	v, err := c.Resource("flaky")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestResourceAsTypeMismatch(t *testing.T) {
	c := newTestContext(map[string]Resolver{
		"name": func(*Context) (any, error) { return "x", nil },
	})
	_, err := ResourceAs[int](c, "name")
	require.Error(t, err)
}

func TestContextResourcesView(t *testing.T) {
	src := map[string]Resolver{
		"a": func(*Context) (any, error) { return 1, nil },
	}
	c := newTestContext(src)
	src["b"] = func(*Context) (any, error) { return 2, nil }

	view := c.Resources()
	assert.Equal(t, 1, view.Len())
	assert.True(t, view.Has("a"))
	_, ok := view.Get("b")
	assert.False(t, ok)

	_, err := c.Resource("b")
	require.ErrorIs(t, err, ErrUnknownResource)
}
