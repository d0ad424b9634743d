package upstream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrEmpty(t *testing.T) {
	ctx := context.Background()

	got := OrEmpty(ctx, nil, "store", []int{1, 2}, nil)
	assert.Equal(t, []int{1, 2}, got)

	got = OrEmpty(ctx, nil, "store", []int{1, 2}, errors.New("boom"))
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = OrEmpty[int](ctx, nil, "store", nil, nil)
	assert.NotNil(t, got)
}

func TestOrZero(t *testing.T) {
	ctx := context.Background()

	v, ok := OrZero(ctx, nil, "fetch", "text", nil)
	assert.True(t, ok)
	assert.Equal(t, "text", v)

	v, ok = OrZero(ctx, nil, "fetch", "text", Disabled("fetch"))
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap("x", nil))

	cause := errors.New("connection refused")
	err := Wrap("elasticsearch", cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "elasticsearch")

	// wrapping twice keeps the first service name
	assert.Equal(t, err, Wrap("other", err))
	assert.ErrorIs(t, Disabled("embedder"), ErrUnavailable)
}
