package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectRegistry(t *testing.T) {
	r := NewDialectRegistry()
	require.True(t, r.Has("builtin"))
	assert.True(t, r.KnowsOp(KindModule))

	require.NoError(t, r.Register(Dialect{Name: "hi", Ops: []OpKind{"hi.func", "hi.return"}}))
	assert.True(t, r.Has("hi"))
	assert.True(t, r.KnowsOp("hi.func"))
	assert.False(t, r.KnowsOp("hi.call"))
	assert.False(t, r.KnowsOp("ll.ret"))
	assert.False(t, r.Has("ll"))
}

func TestDialectRegistryDuplicate(t *testing.T) {
	r := NewDialectRegistry()
	require.NoError(t, r.Register(Dialect{Name: "hi"}))
	assert.Error(t, r.Register(Dialect{Name: "hi"}))
	assert.Error(t, r.Register(Dialect{}))
}

func TestDialectRegistryOrder(t *testing.T) {
	r := NewDialectRegistry()
	require.NoError(t, r.Register(Dialect{Name: "hi"}))
	require.NoError(t, r.Register(Dialect{Name: "core"}))
	assert.Equal(t, []string{"builtin", "hi", "core"}, r.Dialects())
}
