package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendCopiesData(t *testing.T) {
	ctx := context.Background()
	b := New()

	data := []byte("abc")
	id, err := b.Put(ctx, data)
	require.NoError(t, err)
	data[0] = 'z'

	rec, ok, err := b.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), rec.Data)
	assert.False(t, rec.CreatedAt.IsZero())

	rec.Data[0] = 'q'
	again, _, _ := b.Get(ctx, id)
	assert.Equal(t, []byte("abc"), again.Data)
}

func TestBackendHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := New()
	_, err := b.Put(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, b.Open(ctx), context.Canceled)
}

func TestDeleteReportsMissing(t *testing.T) {
	ctx := context.Background()
	b := New()

	id, err := b.Put(ctx, []byte("x"))
	require.NoError(t, err)

	ok, err := b.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	next, err := b.Put(ctx, []byte("y"))
	require.NoError(t, err)
	assert.Greater(t, next, id)
}
