package memobank

import (
	"context"
	"hash/fnv"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/strandlabs/strand/plugin/vectorstore"
)

func stubEmbedding(_ context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	v := []float32{
		float32(seed%97) + 1,
		float32(seed%89) + 1,
		float32(seed%83) + 1,
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v, nil
}

func identitySummarize(_ context.Context, transcript string) (string, error) {
	return transcript, nil
}

func TestWriteThenRetrieve(t *testing.T) {
	ctx := context.Background()
	bank := New(vectorstore.NewInMemory(stubEmbedding))

	require.NoError(t, bank.Write(ctx, "alice", "user: I have two cats\nassistant: noted", func(_ context.Context, _ string) (string, error) {
		return "alice has two cats", nil
	}))

	memories, err := bank.Retrieve(ctx, "alice", "how many cats do I have?", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"alice has two cats"}, memories)
}

func TestRetrieveIsNamespacedPerUser(t *testing.T) {
	ctx := context.Background()
	bank := New(vectorstore.NewInMemory(stubEmbedding))

	require.NoError(t, bank.Write(ctx, "alice", "alice has two cats", identitySummarize))
	require.NoError(t, bank.Write(ctx, "bob", "bob is allergic to cats", identitySummarize))

	// Identical queries must never cross user namespaces.
	aliceMemories, err := bank.Retrieve(ctx, "alice", "cats", 5)
	require.NoError(t, err)
	require.Equal(t, []string{"alice has two cats"}, aliceMemories)

	bobMemories, err := bank.Retrieve(ctx, "bob", "cats", 5)
	require.NoError(t, err)
	require.Equal(t, []string{"bob is allergic to cats"}, bobMemories)
}

func TestRetrieveUnknownUserIsEmpty(t *testing.T) {
	bank := New(vectorstore.NewInMemory(stubEmbedding))

	memories, err := bank.Retrieve(context.Background(), "nobody", "anything", 3)
	require.NoError(t, err)
	require.Empty(t, memories)
}

func TestWriteEmptyTranscriptIsNoop(t *testing.T) {
	ctx := context.Background()
	bank := New(vectorstore.NewInMemory(stubEmbedding))

	called := false
	require.NoError(t, bank.Write(ctx, "alice", "", func(_ context.Context, _ string) (string, error) {
		called = true
		return "", nil
	}))
	require.False(t, called)
}

func TestWriteSurfacesSummarizeFailure(t *testing.T) {
	bank := New(vectorstore.NewInMemory(stubEmbedding))

	err := bank.Write(context.Background(), "alice", "something happened", func(_ context.Context, _ string) (string, error) {
		return "", errors.New("model unavailable")
	})
	require.Error(t, err)

	memories, err := bank.Retrieve(context.Background(), "alice", "something", 3)
	require.NoError(t, err)
	require.Empty(t, memories)
}

func TestRetrieveLimit(t *testing.T) {
	ctx := context.Background()
	bank := New(vectorstore.NewInMemory(stubEmbedding))

	for _, m := range []string{"likes go", "likes sqlite", "likes coffee", "likes hiking"} {
		require.NoError(t, bank.Write(ctx, "alice", m, identitySummarize))
	}

	memories, err := bank.Retrieve(ctx, "alice", "likes", 2)
	require.NoError(t, err)
	require.Len(t, memories, 2)
}
