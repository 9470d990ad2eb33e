// Package catalog orchestrates fetch-on-change for the dashboard's item
// list: every configuration mutation triggers a refresh, and the engine
// republishes the latest accepted result set.
package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mkrasov/foundry/internal/filter"
	"github.com/mkrasov/foundry/internal/upstream"
)

// Fetcher issues catalog queries. Implemented by upstream.Client.
type Fetcher interface {
	FetchCatalog(ctx context.Context, q filter.Query) ([]upstream.CatalogEntry, error)
}

// Engine holds the latest catalog result set. Refreshes run asynchronously;
// each carries a generation number and only a response matching the latest
// issued generation is applied, so a slow response from an older query can
// never overwrite a newer one. In-flight requests are not cancelled; a
// superseded response is simply discarded on arrival.
type Engine struct {
	fetcher Fetcher

	mu      sync.Mutex
	gen     uint64
	entries []upstream.CatalogEntry
}

// NewEngine creates an Engine over the given fetcher.
func NewEngine(fetcher Fetcher) *Engine {
	return &Engine{fetcher: fetcher}
}

// Refresh builds the query for the current configuration and fetches
// asynchronously. It returns a channel that yields the fetch outcome once
// the response has been applied or discarded; callers that only care about
// eventual consistency may ignore it. On fetch failure the previous result
// set stays published.
func (e *Engine) Refresh(ctx context.Context, cfg *filter.Config, cat filter.Catalog) <-chan error {
	q := cfg.Query(cat)

	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	requestID := uuid.NewString()
	done := make(chan error, 1)

	go func() {
		defer close(done)

		entries, err := e.fetcher.FetchCatalog(ctx, q)
		if err != nil {
			slog.Warn("catalog refresh failed, keeping previous results",
				"request_id", requestID, "generation", gen, "error", err)
			done <- err
			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.gen {
			slog.Debug("discarding superseded catalog response",
				"request_id", requestID, "generation", gen, "latest", e.gen)
			done <- nil
			return
		}
		e.entries = entries
		slog.Debug("catalog refreshed",
			"request_id", requestID, "generation", gen, "entries", len(entries))
		done <- nil
	}()

	return done
}

// Entries returns the latest accepted result set.
func (e *Engine) Entries() []upstream.CatalogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entries
}
