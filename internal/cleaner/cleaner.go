// Package cleaner runs the one-time preprocessing pass that produces the
// clean_text input the index builder consumes: it normalizes each post's
// text, extracts URLs, tidies auxiliary fields, and writes everything back
// into the document store. The pass is idempotent; re-running it overwrites
// the same derived columns.
package cleaner

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/irlabs/postsearch/internal/analysis"
	"github.com/irlabs/postsearch/internal/store"
	"golang.org/x/sync/errgroup"
)

// Store is the slice of the post repository the cleaner needs.
type Store interface {
	FetchAllForCleaning(ctx context.Context) ([]store.RawPost, error)
	UpdateCleaned(ctx context.Context, p store.CleanedPost) error
}

// Stats summarises one cleaning run.
type Stats struct {
	Fetched int
	Updated int
	Failed  int
}

// Cleaner normalizes posts and writes the results back.
type Cleaner struct {
	store   Store
	workers int
	logger  *slog.Logger
}

// New creates a Cleaner. workers bounds the normalization fan-out; 0 means
// GOMAXPROCS.
func New(s Store, workers int) *Cleaner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Cleaner{
		store:   s,
		workers: workers,
		logger:  slog.Default().With("component", "cleaner"),
	}
}

// Run fetches all posts, normalizes them, and writes the cleaned fields
// back. Normalization is fanned out across workers (the pipeline is pure);
// writes stay sequential. A failing write is logged and skipped, never
// aborting the batch.
func (c *Cleaner) Run(ctx context.Context) (Stats, error) {
	posts, err := c.store.FetchAllForCleaning(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Fetched: len(posts)}
	if len(posts) == 0 {
		c.logger.Info("no posts to clean")
		return stats, nil
	}

	cleaned := make([]store.CleanedPost, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, post := range posts {
		i, post := i, post
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cleaned[i] = Clean(post)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for _, p := range cleaned {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := c.store.UpdateCleaned(ctx, p); err != nil {
			c.logger.Warn("skipping post after failed write-back",
				"post_id", p.ID,
				"error", err,
			)
			stats.Failed++
			continue
		}
		stats.Updated++
	}

	c.logger.Info("cleaning pass complete",
		"fetched", stats.Fetched,
		"updated", stats.Updated,
		"failed", stats.Failed,
	)
	return stats, nil
}

// Clean derives the cleaned fields of one post: normalized text, joined
// extracted URLs (absent when none), blank URL mapped to absent, negative
// likes clamped to zero, and the optional timestamp split into date and
// time parts. Pure; safe to call concurrently.
func Clean(p store.RawPost) store.CleanedPost {
	out := store.CleanedPost{
		ID:        p.ID,
		CleanText: analysis.CleanText(p.Text),
	}

	if urls := analysis.ExtractURLs(p.Text); len(urls) > 0 {
		joined := strings.Join(urls, ", ")
		out.ExtractedURLs = &joined
	}

	if p.URL != nil && strings.TrimSpace(*p.URL) != "" {
		u := *p.URL
		out.URL = &u
	}

	if p.Likes != nil {
		likes := *p.Likes
		if likes < 0 {
			likes = 0
		}
		out.Likes = &likes
	}

	if p.PostedAt != nil {
		date := p.PostedAt.Format("2006-01-02")
		clock := p.PostedAt.Format("15:04:05")
		out.DateOnly = &date
		out.TimeOnly = &clock
	}
	return out
}
