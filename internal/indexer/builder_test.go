package indexer

import (
	"fmt"
	"reflect"
	"testing"
)

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func threeDocCorpus() []Document {
	return []Document{
		{ID: "1", NormalizedText: "cat love cat", Likes: intPtr(5)},
		{ID: "2", NormalizedText: "dog love cat", Likes: intPtr(3), Comments: intPtr(1)},
		{ID: "3", NormalizedText: "bird fly", Date: strPtr("2024-06-01")},
	}
}

func TestBuildPostings(t *testing.T) {
	snap := Build(threeDocCorpus())

	if snap.DocsIndexed != 3 {
		t.Fatalf("DocsIndexed = %d, want 3", snap.DocsIndexed)
	}

	cat, ok := snap.Postings["cat"]
	if !ok {
		t.Fatal("term cat missing from postings")
	}
	if cat.DF != 2 {
		t.Errorf("cat df = %d, want 2", cat.DF)
	}
	if cat.TFTotal != 3 {
		t.Errorf("cat tf_total = %d, want 3", cat.TFTotal)
	}
	if want := []string{"1", "2"}; !reflect.DeepEqual(cat.Postings, want) {
		t.Errorf("cat postings = %v, want %v", cat.Postings, want)
	}

	fly := snap.Postings["fly"]
	if fly.DF != 1 || fly.TFTotal != 1 {
		t.Errorf("fly entry = %+v, want df=1 tf_total=1", fly)
	}
}

func TestBuildMetadata(t *testing.T) {
	snap := Build(threeDocCorpus())

	md := snap.Metadata["1"]
	if md.DominantTerm != "cat" || md.DominantTermFrequency != 2 {
		t.Errorf("doc 1 dominant = %s/%d, want cat/2", md.DominantTerm, md.DominantTermFrequency)
	}
	if md.TokenCount != 3 {
		t.Errorf("doc 1 token count = %d, want 3", md.TokenCount)
	}
	if md.Likes == nil || *md.Likes != 5 {
		t.Errorf("doc 1 likes = %v, want 5", md.Likes)
	}
	if md.Comments != nil {
		t.Errorf("doc 1 comments = %v, want absent", md.Comments)
	}

	// All of doc 2's terms have frequency 1; the lexicographically smallest
	// must win.
	md2 := snap.Metadata["2"]
	if md2.DominantTerm != "cat" || md2.DominantTermFrequency != 1 {
		t.Errorf("doc 2 dominant = %s/%d, want cat/1", md2.DominantTerm, md2.DominantTermFrequency)
	}
}

// df must equal the cardinality of the postings set, and tf_total must equal
// the sum of the per-document frequencies over the postings, for every term.
func TestBuildInvariants(t *testing.T) {
	docs := []Document{
		{ID: "a", NormalizedText: "red red blue green"},
		{ID: "b", NormalizedText: "blue blue blue red"},
		{ID: "c", NormalizedText: "green"},
		{ID: "d", NormalizedText: ""},
	}
	snap := Build(docs)

	for term, entry := range snap.Postings {
		if entry.DF != len(entry.Postings) {
			t.Errorf("term %s: df=%d but %d postings", term, entry.DF, len(entry.Postings))
		}
		seen := make(map[string]struct{})
		sum := 0
		for _, id := range entry.Postings {
			if _, dup := seen[id]; dup {
				t.Errorf("term %s: duplicate posting %s", term, id)
			}
			seen[id] = struct{}{}
			tf := snap.DocFrequencies[id][term]
			if tf <= 0 {
				t.Errorf("term %s: doc %s posted with frequency %d", term, id, tf)
			}
			sum += tf
		}
		if entry.TFTotal != sum {
			t.Errorf("term %s: tf_total=%d but per-doc sum=%d", term, entry.TFTotal, sum)
		}
	}
}

func TestEmptyDocumentExcluded(t *testing.T) {
	snap := Build([]Document{
		{ID: "1", NormalizedText: "cat"},
		{ID: "2", NormalizedText: "   "},
	})

	if snap.DocsIndexed != 1 {
		t.Errorf("DocsIndexed = %d, want 1", snap.DocsIndexed)
	}
	if snap.DocsSkipped != 1 {
		t.Errorf("DocsSkipped = %d, want 1", snap.DocsSkipped)
	}
	if _, ok := snap.Metadata["2"]; ok {
		t.Error("empty document present in metadata")
	}
	if _, ok := snap.DocFrequencies["2"]; ok {
		t.Error("empty document has a frequency table")
	}
	for term, entry := range snap.Postings {
		for _, id := range entry.Postings {
			if id == "2" {
				t.Errorf("empty document posted under term %s", term)
			}
		}
	}
}

func TestEmptyCorpus(t *testing.T) {
	snap := Build(nil)
	if snap.DocsIndexed != 0 || snap.DocsSkipped != 0 {
		t.Errorf("counts = %d/%d, want 0/0", snap.DocsIndexed, snap.DocsSkipped)
	}
	if len(snap.Postings) != 0 || len(snap.Metadata) != 0 {
		t.Error("empty corpus produced non-empty tables")
	}
}

func TestReaddingDocumentIsIdempotent(t *testing.T) {
	b := NewBuilder()
	doc := Document{ID: "1", NormalizedText: "cat cat"}
	if !b.Add(doc) {
		t.Fatal("first Add returned false")
	}
	if b.Add(doc) {
		t.Fatal("second Add of same document returned true")
	}

	snap := b.Snapshot()
	cat := snap.Postings["cat"]
	if cat.DF != 1 || cat.TFTotal != 2 {
		t.Errorf("cat entry = %+v, want df=1 tf_total=2", cat)
	}
	if want := []string{"1"}; !reflect.DeepEqual(cat.Postings, want) {
		t.Errorf("cat postings = %v, want %v", cat.Postings, want)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	b := NewBuilder()
	b.Add(Document{ID: "1", NormalizedText: "cat"})
	snap := b.Snapshot()
	b.Add(Document{ID: "2", NormalizedText: "cat"})

	if snap.Postings["cat"].DF != 1 {
		t.Error("snapshot changed after later Add")
	}
}

func TestDominantTermDeterministic(t *testing.T) {
	// Same document built many times must always report the same dominant
	// term despite map iteration order.
	for i := 0; i < 50; i++ {
		snap := Build([]Document{{ID: "1", NormalizedText: "zebra apple mango"}})
		md := snap.Metadata["1"]
		if md.DominantTerm != "apple" {
			t.Fatalf("run %d: dominant = %q, want apple", i, md.DominantTerm)
		}
	}
}

func BenchmarkBuild(b *testing.B) {
	docs := make([]Document, 1000)
	for i := range docs {
		docs[i] = Document{
			ID:             fmt.Sprintf("doc-%d", i),
			NormalizedText: "search engine index term frequency document rank score cat dog",
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap := Build(docs)
		_ = snap
	}
}
