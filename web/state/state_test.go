package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBagSetGet(t *testing.T) {
	t.Parallel()

	b := New()
	_, ok := b.Get("missing")
	assert.False(t, ok)

	b.Set("userId", "abc")
	v, ok := b.Get("userId")
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	b.Set("userId", "def")
	v, _ = b.Get("userId")
	assert.Equal(t, "def", v)
}

func TestBagSnapshot(t *testing.T) {
	t.Parallel()

	b := New()
	b.Set("a", 1)
	b.Set("b", 2)

	snap := b.Snapshot()
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, snap)

	// Mutating the snapshot must not affect the bag.
	snap["a"] = 99
	snap["c"] = 3
	v, _ := b.Get("a")
	assert.Equal(t, 1, v)
	_, ok := b.Get("c")
	assert.False(t, ok)
}

func TestBagMerge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		partial map[any]any
		exp     map[string]any
	}{
		{
			name:    "ok/string_keys",
			partial: map[any]any{"userId": "abc", "role": "admin"},
			exp:     map[string]any{"userId": "abc", "role": "admin"},
		},
		{
			name:    "ok/numeric_keys_rendered_decimal",
			partial: map[any]any{1: "one", int64(2): "two", uint(3): "three", 2.5: "half"},
			exp:     map[string]any{"1": "one", "2": "two", "3": "three", "2.5": "half"},
		},
		{
			name: "ok/unsupported_keys_dropped",
			partial: map[any]any{
				"kept":      true,
				struct{}{}:  "dropped",
				true:        "dropped",
				[2]int{1}:   "dropped",
				(*int)(nil): "dropped",
			},
			exp: map[string]any{"kept": true},
		},
		{
			name:    "ok/empty",
			partial: map[any]any{},
			exp:     map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := New()
			b.Merge(tt.partial)
			assert.Equal(t, tt.exp, b.Snapshot())
		})
	}
}

func TestBagMergeOverwrites(t *testing.T) {
	t.Parallel()

	b := New()
	b.Set("userId", "old")
	b.Merge(map[any]any{"userId": "new"})
	v, _ := b.Get("userId")
	assert.Equal(t, "new", v)
}

func TestBagIsolation(t *testing.T) {
	t.Parallel()

	b1, b2 := New(), New()
	b1.Set("k", "b1")
	b2.Set("k", "b2")

	v1, _ := b1.Get("k")
	v2, _ := b2.Get("k")
	assert.Equal(t, "b1", v1)
	assert.Equal(t, "b2", v2)
}

func TestContextAttachFrom(t *testing.T) {
	t.Parallel()

	_, ok := From(context.Background())
	assert.False(t, ok)

	b := New()
	ctx := Attach(context.Background(), b)
	got, ok := From(ctx)
	require.True(t, ok)
	assert.Same(t, b, got)
}
