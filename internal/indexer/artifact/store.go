// Package artifact persists and loads the index artifacts produced by a
// build: the global postings table, the metadata table, and one
// independently addressable term-frequency file per document.
//
// Artifacts are written into a fresh version directory and published by
// atomically renaming a CURRENT pointer file into place, so a reader never
// observes a half-written index. A rebuild wholesale-replaces the previous
// version; stale versions are pruned after publish.
package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/irlabs/postsearch/internal/indexer"
	apperrors "github.com/irlabs/postsearch/pkg/errors"
)

const (
	currentFile  = "CURRENT"
	versionsDir  = "versions"
	postingsFile = "postings.json"
	metadataFile = "metadata.json"
	docsDir      = "docs"
)

// Store manages versioned index artifacts under a root directory.
type Store struct {
	root   string
	keep   int
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir, retaining keepVersions published
// versions (minimum 1).
func NewStore(dir string, keepVersions int) *Store {
	if keepVersions < 1 {
		keepVersions = 1
	}
	return &Store{
		root:   dir,
		keep:   keepVersions,
		logger: slog.Default().With("component", "artifact-store"),
	}
}

// Publish writes the snapshot into a new version directory and atomically
// repoints CURRENT at it. Any failure before the final rename leaves the
// previously published version untouched.
func (s *Store) Publish(snap *indexer.Snapshot) (string, error) {
	version := fmt.Sprintf("v%d", time.Now().UnixNano())
	dir := filepath.Join(s.root, versionsDir, version)

	if err := os.MkdirAll(filepath.Join(dir, docsDir), 0o755); err != nil {
		return "", fmt.Errorf("%w: creating version directory: %v", apperrors.ErrStorageIO, err)
	}

	for id, freq := range snap.DocFrequencies {
		path := filepath.Join(dir, docsDir, docFileName(id))
		if err := writeJSON(path, freq); err != nil {
			return "", fmt.Errorf("writing frequency table for document %s: %w", id, err)
		}
	}
	if err := writeJSON(filepath.Join(dir, postingsFile), snap.Postings); err != nil {
		return "", fmt.Errorf("writing postings table: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), snap.Metadata); err != nil {
		return "", fmt.Errorf("writing metadata table: %w", err)
	}

	if err := s.pointCurrent(version); err != nil {
		return "", err
	}
	s.logger.Info("index version published",
		"version", version,
		"documents", snap.DocsIndexed,
		"terms", len(snap.Postings),
	)
	s.prune(version)
	return version, nil
}

// Open resolves the CURRENT pointer and returns a Reader over the published
// version. It fails with ErrArtifactMissing when nothing has been published.
func (s *Store) Open() (*Reader, error) {
	data, err := os.ReadFile(filepath.Join(s.root, currentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no published index under %s", apperrors.ErrArtifactMissing, s.root)
		}
		return nil, fmt.Errorf("%w: reading CURRENT pointer: %v", apperrors.ErrStorageIO, err)
	}
	version := strings.TrimSpace(string(data))
	dir := filepath.Join(s.root, versionsDir, version)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: published version %s is gone", apperrors.ErrArtifactMissing, version)
	}
	return &Reader{dir: dir, version: version}, nil
}

// pointCurrent publishes the version via tmp file + rename, the same
// atomic-cutover move the segment format uses.
func (s *Store) pointCurrent(version string) error {
	final := filepath.Join(s.root, currentFile)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: creating CURRENT.tmp: %v", apperrors.ErrStorageIO, err)
	}
	if _, err := f.WriteString(version + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing CURRENT.tmp: %v", apperrors.ErrStorageIO, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: syncing CURRENT.tmp: %v", apperrors.ErrStorageIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing CURRENT.tmp: %v", apperrors.ErrStorageIO, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("%w: renaming CURRENT into place: %v", apperrors.ErrStorageIO, err)
	}
	return nil
}

// prune removes published versions beyond the retention count. Failures are
// logged and ignored; stale versions only cost disk.
func (s *Store) prune(current string) {
	entries, err := os.ReadDir(filepath.Join(s.root, versionsDir))
	if err != nil {
		s.logger.Warn("reading versions directory for pruning", "error", err)
		return
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	// Version names embed a nanosecond timestamp of equal width, so the
	// lexicographic order is the creation order.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for i, name := range names {
		if i < s.keep || name == current {
			continue
		}
		path := filepath.Join(s.root, versionsDir, name)
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn("pruning stale version", "version", name, "error", err)
			continue
		}
		s.logger.Info("stale version pruned", "version", name)
	}
}

// Reader loads artifacts from one published version. All reads are against
// an immutable directory.
type Reader struct {
	dir     string
	version string
}

// Version returns the published version name this reader is bound to.
func (r *Reader) Version() string {
	return r.version
}

// LoadPostings reads the global postings table.
func (r *Reader) LoadPostings() (map[string]indexer.PostingEntry, error) {
	var postings map[string]indexer.PostingEntry
	if err := readJSON(filepath.Join(r.dir, postingsFile), &postings); err != nil {
		return nil, fmt.Errorf("loading postings table: %w", err)
	}
	return postings, nil
}

// LoadMetadata reads the per-document metadata table.
func (r *Reader) LoadMetadata() (map[string]indexer.DocMetadata, error) {
	var metadata map[string]indexer.DocMetadata
	if err := readJSON(filepath.Join(r.dir, metadataFile), &metadata); err != nil {
		return nil, fmt.Errorf("loading metadata table: %w", err)
	}
	return metadata, nil
}

// ReadDocFrequencies reads the term-frequency table of a single document.
func (r *Reader) ReadDocFrequencies(docID string) (map[string]int, error) {
	var freq map[string]int
	if err := readJSON(filepath.Join(r.dir, docsDir, docFileName(docID)), &freq); err != nil {
		return nil, fmt.Errorf("loading frequency table for document %s: %w", docID, err)
	}
	return freq, nil
}

func docFileName(id string) string {
	return "post_" + id + ".json"
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshaling %s: %v", apperrors.ErrStorageIO, filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", apperrors.ErrStorageIO, filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", apperrors.ErrArtifactMissing, filepath.Base(path))
		}
		return fmt.Errorf("%w: reading %s: %v", apperrors.ErrStorageIO, filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", apperrors.ErrStorageIO, filepath.Base(path), err)
	}
	return nil
}
