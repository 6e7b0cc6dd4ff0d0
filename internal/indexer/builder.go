// Package indexer builds the inverted index over pre-cleaned posts. A
// Builder owns the accumulating tables for the duration of one batch and
// exposes them only as an immutable Snapshot once the batch completes.
package indexer

import (
	"log/slog"
	"sort"
	"strings"
)

// Builder accumulates postings, metadata, and per-document frequency tables
// for a single full-corpus build. It is not safe for concurrent use; one
// rebuild run owns it exclusively.
type Builder struct {
	postings map[string]*PostingEntry
	metadata map[string]DocMetadata
	docFreqs map[string]map[string]int
	// termDocs guards df bookkeeping: a document increments a term's df and
	// joins its postings exactly once.
	termDocs map[string]map[string]struct{}
	skipped  int
	logger   *slog.Logger
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		postings: make(map[string]*PostingEntry),
		metadata: make(map[string]DocMetadata),
		docFreqs: make(map[string]map[string]int),
		termDocs: make(map[string]map[string]struct{}),
		logger:   slog.Default().With("component", "index-builder"),
	}
}

// Add accumulates one document into the build. It returns true when the
// document was indexed and false when it was skipped: missing id, already
// processed (re-adding the same document is a no-op), or an empty normalized
// token sequence. Skipped documents appear nowhere in the output.
func (b *Builder) Add(doc Document) bool {
	if doc.ID == "" {
		b.logger.Warn("skipping document with empty id")
		b.skipped++
		return false
	}
	if _, dup := b.docFreqs[doc.ID]; dup {
		b.logger.Warn("skipping already indexed document", "doc_id", doc.ID)
		return false
	}

	tokens := strings.Fields(doc.NormalizedText)
	if len(tokens) == 0 {
		b.logger.Debug("skipping document with no tokens", "doc_id", doc.ID)
		b.skipped++
		return false
	}

	freq := make(map[string]int, len(tokens))
	for _, term := range tokens {
		freq[term]++
	}

	dominant, dominantFreq := dominantTerm(freq)
	b.metadata[doc.ID] = DocMetadata{
		DominantTerm:          dominant,
		DominantTermFrequency: dominantFreq,
		TokenCount:            len(tokens),
		Likes:                 doc.Likes,
		Comments:              doc.Comments,
		Date:                  doc.Date,
	}
	b.docFreqs[doc.ID] = freq

	for term, tf := range freq {
		entry, ok := b.postings[term]
		if !ok {
			entry = &PostingEntry{}
			b.postings[term] = entry
			b.termDocs[term] = make(map[string]struct{})
		}
		entry.TFTotal += tf
		if _, seen := b.termDocs[term][doc.ID]; !seen {
			b.termDocs[term][doc.ID] = struct{}{}
			entry.DF++
			entry.Postings = append(entry.Postings, doc.ID)
		}
	}
	return true
}

// Snapshot copies the accumulated tables into an immutable Snapshot with
// deterministic ordering: every postings list sorted by ascending document
// id. The Builder can keep accumulating afterwards; the Snapshot never
// changes.
func (b *Builder) Snapshot() *Snapshot {
	snap := &Snapshot{
		Postings:       make(map[string]PostingEntry, len(b.postings)),
		Metadata:       make(map[string]DocMetadata, len(b.metadata)),
		DocFrequencies: make(map[string]map[string]int, len(b.docFreqs)),
		DocsIndexed:    len(b.metadata),
		DocsSkipped:    b.skipped,
	}
	for term, entry := range b.postings {
		postings := make([]string, len(entry.Postings))
		copy(postings, entry.Postings)
		sort.Strings(postings)
		snap.Postings[term] = PostingEntry{
			DF:       entry.DF,
			TFTotal:  entry.TFTotal,
			Postings: postings,
		}
	}
	for id, md := range b.metadata {
		snap.Metadata[id] = md
	}
	for id, freq := range b.docFreqs {
		copied := make(map[string]int, len(freq))
		for term, tf := range freq {
			copied[term] = tf
		}
		snap.DocFrequencies[id] = copied
	}
	return snap
}

// Build runs one full batch over the given documents and returns the
// resulting snapshot. An empty corpus yields an empty snapshot, not an
// error.
func Build(docs []Document) *Snapshot {
	b := NewBuilder()
	for _, doc := range docs {
		b.Add(doc)
	}
	return b.Snapshot()
}

// dominantTerm returns the highest-frequency term in freq. Ties are broken
// by the lexicographically smallest term so rebuilds are deterministic.
func dominantTerm(freq map[string]int) (string, int) {
	var best string
	bestFreq := -1
	for term, tf := range freq {
		if tf > bestFreq || (tf == bestFreq && term < best) {
			best = term
			bestFreq = tf
		}
	}
	return best, bestFreq
}
