package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct{ name string }

func TestContainerRegisterAndResolve(t *testing.T) {
	c := NewContainer()
	c.Register("b", 42)
	c.Register("a", &greeter{name: "苏糖"})

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("missing"))
	assert.Equal(t, []string{"a", "b"}, c.GetNames())

	g, err := Resolve[*greeter](c, "a")
	require.NoError(t, err)
	assert.Equal(t, "苏糖", g.name)

	_, err = Resolve[*greeter](c, "b")
	assert.Error(t, err)

	_, err = Resolve[int](c, "missing")
	assert.Error(t, err)
}

func TestContainerRemoveAndClear(t *testing.T) {
	c := NewContainer()
	c.Register("a", 1)
	c.Register("b", 2)

	c.Remove("a")
	assert.Nil(t, c.Get("a"))
	assert.Equal(t, 2, c.Get("b"))

	c.Clear()
	assert.Empty(t, c.GetNames())
}

func TestGetContainerIsSingleton(t *testing.T) {
	assert.Same(t, GetContainer(), GetContainer())
}
