// Package catalog exposes the saved-question catalog to the UI: cached
// summaries, per-type counts and lazy detail fetches.
package catalog

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/smartest-app/smartest-client/internal/question"
)

// Backend is the slice of the server API the catalog consumes.
type Backend interface {
	ListQuestions(ctx context.Context) ([]question.Summary, error)
	TypeCounts(ctx context.Context) (map[string]int, error)
	GetQuestion(ctx context.Context, id int64) (question.Detail, error)
	DeleteQuestion(ctx context.Context, id int64) (string, error)
	ClearAll(ctx context.Context) (string, error)
}

// Catalog caches the last successfully fetched question list so screens
// can show counts without a round trip. Safe for concurrent use (the UI
// loop and the background refresher share one instance).
type Catalog struct {
	backend Backend
	logger  zerolog.Logger

	mu        sync.RWMutex
	summaries []question.Summary
	counts    map[string]int
}

// New builds a catalog over the given backend.
func New(backend Backend, logger zerolog.Logger) *Catalog {
	return &Catalog{backend: backend, logger: logger}
}

// ListSummaries fetches the saved questions. On failure the cached copy
// is left intact and an empty list is returned alongside the error, so
// callers degrade to an empty view instead of crashing.
func (c *Catalog) ListSummaries(ctx context.Context) ([]question.Summary, error) {
	summaries, err := c.backend.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.summaries = summaries
	c.mu.Unlock()
	return summaries, nil
}

// TypeCounts fetches the per-type saved-question counts. A type with a
// zero count must not be offered for test composition.
func (c *Catalog) TypeCounts(ctx context.Context) (map[string]int, error) {
	counts, err := c.backend.TypeCounts(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.counts = counts
	c.mu.Unlock()
	return counts, nil
}

// GetDetail fetches one question's full content. clienterr.ErrNotFound
// propagates unchanged so callers can return to the catalog view.
func (c *Catalog) GetDetail(ctx context.Context, id int64) (question.Detail, error) {
	return c.backend.GetQuestion(ctx, id)
}

// Delete removes one saved question and drops the cached list.
func (c *Catalog) Delete(ctx context.Context, id int64) (string, error) {
	msg, err := c.backend.DeleteQuestion(ctx, id)
	if err == nil {
		c.invalidate()
	}
	return msg, err
}

// ClearAll removes every saved question and drops the cached list.
func (c *Catalog) ClearAll(ctx context.Context) (string, error) {
	msg, err := c.backend.ClearAll(ctx)
	if err == nil {
		c.invalidate()
	}
	return msg, err
}

// Snapshot returns the last successfully fetched summaries without I/O.
func (c *Catalog) Snapshot() []question.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]question.Summary, len(c.summaries))
	copy(out, c.summaries)
	return out
}

// CountsSnapshot returns the last successfully fetched type counts.
func (c *Catalog) CountsSnapshot() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

func (c *Catalog) invalidate() {
	c.mu.Lock()
	c.summaries = nil
	c.mu.Unlock()
}
