package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/insight/errors"
)

func TestGetPutDelete(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsKeyNotFound(err))

	require.NoError(t, store.Put(ctx, "k1", []byte("v1")))
	value, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	require.NoError(t, store.Put(ctx, "k1", []byte("v2")))
	value, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)

	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Get(ctx, "k1")
	require.Error(t, err)

	// Deleting an absent key is a no-op.
	require.NoError(t, store.Delete(ctx, "k1"))
}

func TestPutEmptyKeyRejected(t *testing.T) {
	store := New()
	err := store.Put(context.Background(), "", []byte("v"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	store := New()

	original := []byte("immutable")
	require.NoError(t, store.Put(ctx, "k", original))
	original[0] = 'X'

	stored, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), stored)

	// Mutating the returned slice must not affect the store.
	stored[0] = 'Y'
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), again)
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Put(ctx, "profiles.alice", []byte("a")))
	require.NoError(t, store.Put(ctx, "profiles.bob", []byte("b")))
	require.NoError(t, store.Put(ctx, "other.carol", []byte("c")))

	keys, err := store.List(ctx, "profiles.")
	require.NoError(t, err)
	assert.Equal(t, []string{"profiles.alice", "profiles.bob"}, keys)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
