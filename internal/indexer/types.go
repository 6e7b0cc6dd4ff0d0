package indexer

// Document is the indexing-time view of a post: a stable id, the normalized
// text produced by the cleaning pass, and engagement attributes. Nil
// pointers mean the attribute is unknown.
type Document struct {
	ID             string
	NormalizedText string
	Likes          *int
	Comments       *int
	Date           *string
}

// PostingEntry is the per-term record of the global postings table.
// Postings holds distinct document ids; DF always equals len(Postings).
type PostingEntry struct {
	DF       int      `json:"df"`
	TFTotal  int      `json:"tf_total"`
	Postings []string `json:"postings"`
}

// DocMetadata is the per-document record of the metadata table. Absent
// engagement attributes serialise as JSON null.
type DocMetadata struct {
	DominantTerm          string  `json:"dominant_term"`
	DominantTermFrequency int     `json:"dominant_term_frequency"`
	TokenCount            int     `json:"token_count"`
	Likes                 *int    `json:"likes"`
	Comments              *int    `json:"comments"`
	Date                  *string `json:"date"`
}

// Snapshot is the immutable result of one full-corpus build: the global
// postings table, per-document metadata, and per-document term-frequency
// tables, plus build counters.
type Snapshot struct {
	Postings       map[string]PostingEntry
	Metadata       map[string]DocMetadata
	DocFrequencies map[string]map[string]int
	DocsIndexed    int
	DocsSkipped    int
}
