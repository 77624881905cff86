// Package toolindex narrows a tool catalog to a query-relevant subset
// via embedding similarity over tool descriptions.
package toolindex

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/strandlabs/strand/plugin/vectorstore"
)

// collection holds one document per registered tool, keyed by tool ID.
const collection = "tools"

// Tool is the slice of a tool descriptor the index needs.
type Tool struct {
	ID          string
	Name        string
	Description string
}

// Index ranks tool IDs by similarity between the query and each tool's
// description. Built once at startup; queries never re-embed the
// catalog.
type Index struct {
	vs      *vectorstore.Store
	enabled bool
	topK    int
	allIDs  []string
}

// New creates an index over vs. When enabled is false, Select always
// returns the full catalog (fail-open to "use everything").
func New(vs *vectorstore.Store, enabled bool, topK int) *Index {
	if topK <= 0 {
		topK = 4
	}
	return &Index{vs: vs, enabled: enabled, topK: topK}
}

// Build embeds every tool description. An embedding failure here is
// fatal to startup; only query-time failures degrade.
func (idx *Index) Build(ctx context.Context, catalog []Tool) error {
	idx.allIDs = idx.allIDs[:0]
	for _, t := range catalog {
		idx.allIDs = append(idx.allIDs, t.ID)
		if !idx.enabled {
			continue
		}
		err := idx.vs.Add(ctx, collection, t.ID, t.Description, map[string]string{
			"tool_name": t.Name,
		})
		if err != nil {
			return errors.Wrapf(err, "index tool %s", t.Name)
		}
	}
	return nil
}

// Select returns tool IDs ranked by relevance to query. With selection
// disabled, or on a query-time embedding failure, it degrades to the
// full catalog rather than aborting the turn.
func (idx *Index) Select(ctx context.Context, query string) []string {
	if !idx.enabled {
		return append([]string(nil), idx.allIDs...)
	}

	results, err := idx.vs.Search(ctx, collection, query, idx.topK)
	if err != nil {
		slog.Warn("tool selection failed, falling back to full catalog", "err", err)
		return append([]string(nil), idx.allIDs...)
	}
	if len(results) == 0 {
		return append([]string(nil), idx.allIDs...)
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}
