// Package searcher implements the ranked query engine over published index
// artifacts. An Engine starts Unloaded, moves to Loaded after a successful
// Load, and from then on treats the loaded tables as an immutable snapshot:
// it never mutates or reloads them. Rebuild and load must be serialized by
// the caller; the engine provides no locking between the two.
//
// The engine answers exactly one query term. Anything past the first
// normalized token is ignored; this is a documented capability limit, not a
// defect.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/irlabs/postsearch/internal/analysis"
	"github.com/irlabs/postsearch/internal/indexer"
	"github.com/irlabs/postsearch/internal/indexer/artifact"
	apperrors "github.com/irlabs/postsearch/pkg/errors"
)

// ScoredDoc is one ranked result: a document id and its TF-IDF score.
type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Result is the outcome of one search.
type Result struct {
	Query        string      `json:"query"`
	Term         string      `json:"term"`
	TotalMatches int         `json:"total_matches"`
	Results      []ScoredDoc `json:"results"`
}

// Engine serves single-term ranked queries against one loaded index
// version.
type Engine struct {
	store      *artifact.Store
	maxResults int

	loaded   bool
	reader   *artifact.Reader
	postings map[string]indexer.PostingEntry
	metadata map[string]indexer.DocMetadata

	logger *slog.Logger
}

// New creates an Unloaded engine over the given artifact store. maxResults
// caps how many ranked documents a search returns.
func New(store *artifact.Store, maxResults int) *Engine {
	return &Engine{
		store:      store,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "query-engine"),
	}
}

// Load reads the postings and metadata artifacts of the currently published
// index version. On any failure the engine remains Unloaded. Load is meant
// to run once per process lifetime, before serving.
func (e *Engine) Load() error {
	reader, err := e.store.Open()
	if err != nil {
		return fmt.Errorf("opening published index: %w", err)
	}
	postings, err := reader.LoadPostings()
	if err != nil {
		return err
	}
	metadata, err := reader.LoadMetadata()
	if err != nil {
		return err
	}
	e.reader = reader
	e.postings = postings
	e.metadata = metadata
	e.loaded = true
	e.logger.Info("index loaded",
		"version", reader.Version(),
		"documents", len(metadata),
		"terms", len(postings),
	)
	return nil
}

// Loaded reports whether the engine has loaded an index version.
func (e *Engine) Loaded() bool {
	return e.loaded
}

// Version returns the loaded index version, or "" while Unloaded.
func (e *Engine) Version() string {
	if !e.loaded {
		return ""
	}
	return e.reader.Version()
}

// Search normalizes the query with the shared analysis pipeline, takes its
// first token, and returns up to maxResults documents ranked by tf × idf
// with idf = ln(1 + N/df). Exact score ties are broken by ascending
// document id. Distinct failure modes: ErrNotReady while Unloaded,
// ErrNoValidTerm when the query normalizes to nothing, ErrTermNotFound when
// the term is absent from the postings table.
func (e *Engine) Search(ctx context.Context, query string) (*Result, error) {
	if !e.loaded {
		return nil, apperrors.ErrNotReady
	}

	tokens := analysis.Normalize(query)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrNoValidTerm, query)
	}
	term := tokens[0]
	if len(tokens) > 1 {
		e.logger.Debug("ignoring extra query terms",
			"term", term,
			"ignored", len(tokens)-1,
		)
	}

	entry, ok := e.postings[term]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrTermNotFound, term)
	}

	// df > 0 holds for every term present in the table.
	totalDocs := len(e.metadata)
	idf := math.Log(1 + float64(totalDocs)/float64(entry.DF))

	scored := make([]ScoredDoc, 0, len(entry.Postings))
	for _, docID := range entry.Postings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		freq, err := e.reader.ReadDocFrequencies(docID)
		if err != nil {
			if errors.Is(err, apperrors.ErrArtifactMissing) {
				e.logger.Warn("frequency table missing, skipping document",
					"doc_id", docID,
					"term", term,
				)
				continue
			}
			return nil, err
		}
		tf := freq[term]
		scored = append(scored, ScoredDoc{
			DocID: docID,
			Score: float64(tf) * idf,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].DocID < scored[j].DocID
	})

	total := len(scored)
	if len(scored) > e.maxResults {
		scored = scored[:e.maxResults]
	}
	return &Result{
		Query:        query,
		Term:         term,
		TotalMatches: total,
		Results:      scored,
	}, nil
}

// ShowMetadata returns the metadata record of a document, or
// ErrDocumentNotFound for an unknown id. It never panics; documents whose
// normalized text was empty are simply not present.
func (e *Engine) ShowMetadata(docID string) (indexer.DocMetadata, error) {
	if !e.loaded {
		return indexer.DocMetadata{}, apperrors.ErrNotReady
	}
	md, ok := e.metadata[docID]
	if !ok {
		return indexer.DocMetadata{}, fmt.Errorf("%w: %q", apperrors.ErrDocumentNotFound, docID)
	}
	return md, nil
}
