// Package memobank stores and retrieves per-user long-term memories:
// short summaries of past turns, indexed by embedding similarity.
package memobank

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/strandlabs/strand/plugin/vectorstore"
)

// SummarizeFunc distills a turn transcript into a short memory,
// typically via a model call.
type SummarizeFunc func(ctx context.Context, transcript string) (string, error)

// Bank is the per-user memory store. Memories are immutable after
// creation and never deleted; unbounded growth is an accepted
// limitation of this design.
type Bank struct {
	vs *vectorstore.Store
}

// New creates a memory bank over vs.
func New(vs *vectorstore.Store) *Bank {
	return &Bank{vs: vs}
}

// collectionName returns the per-user memory namespace.
func collectionName(userID string) string {
	return fmt.Sprintf("user_%s_memories", userID)
}

// Retrieve returns up to limit memory summaries for userID ranked by
// similarity to query. Results are post-filtered on the owner metadata
// even though collections are already per-user: cross-user leakage is a
// correctness violation, not a tuning concern.
func (b *Bank) Retrieve(ctx context.Context, userID, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}
	results, err := b.vs.Search(ctx, collectionName(userID), query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "search memories")
	}

	memories := make([]string, 0, len(results))
	for _, r := range results {
		if r.Metadata["user_id"] != userID {
			continue
		}
		memories = append(memories, r.Content)
	}
	return memories, nil
}

// Write summarizes a turn transcript and persists it as a new immutable
// memory record. The record is durable before Write returns.
func (b *Bank) Write(ctx context.Context, userID, transcript string, summarize SummarizeFunc) error {
	if transcript == "" {
		return nil
	}
	summary, err := summarize(ctx, transcript)
	if err != nil {
		return errors.Wrap(err, "summarize turn")
	}

	memoryID := uuid.New().String()
	err = b.vs.Add(ctx, collectionName(userID), memoryID, summary, map[string]string{
		"user_id": userID,
	})
	return errors.Wrap(err, "persist memory")
}
