// Package vectorstore wraps chromem-go with named collections and
// optional disk persistence. It backs both the semantic tool index and
// the long-term memory bank.
package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// SearchResult is a single semantic-search hit.
type SearchResult struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float32
}

// Store wraps chromem-go. All writes go through the store mutex;
// chromem collections are otherwise read-mostly after startup.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
}

// New creates (or opens) a persistent vector store at dataDir/vectorstore/.
// Documents added here survive process restarts; AddDocument does not
// return before the write has been flushed to disk.
func New(dataDir string, embedFn chromem.EmbeddingFunc) (*Store, error) {
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create vectorstore dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}
	return &Store{db: db, embedFn: embedFn}, nil
}

// NewInMemory creates a volatile store. Used by the tool index (rebuilt
// at every startup) and by tests.
func NewInMemory(embedFn chromem.EmbeddingFunc) *Store {
	return &Store{db: chromem.NewDB(), embedFn: embedFn}
}

// getOrCreateCollection returns (or creates) the named collection.
func (s *Store) getOrCreateCollection(name string) (*chromem.Collection, error) {
	col := s.db.GetCollection(name, s.embedFn)
	if col == nil {
		var err error
		col, err = s.db.CreateCollection(name, nil, s.embedFn)
		if err != nil {
			return nil, fmt.Errorf("create collection %s: %w", name, err)
		}
	}
	return col, nil
}

// Add embeds and stores one document in the named collection. The
// document is durable before Add returns when the store is persistent.
func (s *Store) Add(ctx context.Context, collection, id, content string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.getOrCreateCollection(collection)
	if err != nil {
		return err
	}
	return col.AddDocument(ctx, chromem.Document{
		ID:       id,
		Content:  content,
		Metadata: metadata,
	})
}

// Search returns the top-k documents in the named collection most
// similar to the query, best first.
func (s *Store) Search(ctx context.Context, collection, query string, k int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.db.GetCollection(collection, s.embedFn)
	if col == nil {
		return nil, nil
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	var results []chromem.Result
	var err error

	// chromem-go sometimes rejects nResults == document count despite the
	// Count check above. Step down k if it fails.
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, query, attemptK, nil, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    r.Similarity,
		})
	}
	return out, nil
}

// Count returns the number of documents in the named collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.db.GetCollection(collection, s.embedFn)
	if col == nil {
		return 0
	}
	return col.Count()
}
