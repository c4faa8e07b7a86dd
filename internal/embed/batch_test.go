package embed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedAll_PreservesOrderAcrossBatches(t *testing.T) {
	// Given: 25 texts and batches of 4
	inner := newCountingEmbedder(64)
	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%0*d", i+1, i)
	}

	// When
	got, err := EmbedAll(context.Background(), inner, texts, 4, 3)

	// Then: each vector belongs to its text
	require.NoError(t, err)
	require.Len(t, got, 25)
	for i, text := range texts {
		assert.Equal(t, inner.vector(text), got[i], "text %d", i)
	}
	assert.Equal(t, int64(7), inner.batchCalls.Load())
}

func TestEmbedAll_Empty(t *testing.T) {
	got, err := EmbedAll(context.Background(), newCountingEmbedder(8), nil, 0, 0)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbedAll_FailureStopsAll(t *testing.T) {
	inner := newCountingEmbedder(8)
	inner.failOn = "broken"

	_, err := EmbedAll(context.Background(), inner, []string{"a", "b", "broken", "c"}, 1, 2)

	assert.ErrorContains(t, err, "broken")
}
