package cleaner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/irlabs/postsearch/internal/store"
)

type fakeStore struct {
	posts    []store.RawPost
	fetchErr error
	failIDs  map[string]bool
	updated  map[string]store.CleanedPost
}

func newFakeStore(posts ...store.RawPost) *fakeStore {
	return &fakeStore{
		posts:   posts,
		failIDs: make(map[string]bool),
		updated: make(map[string]store.CleanedPost),
	}
}

func (f *fakeStore) FetchAllForCleaning(ctx context.Context) ([]store.RawPost, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.posts, nil
}

func (f *fakeStore) UpdateCleaned(ctx context.Context, p store.CleanedPost) error {
	if f.failIDs[p.ID] {
		return errors.New("write failed")
	}
	f.updated[p.ID] = p
	return nil
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestCleanNormalizesText(t *testing.T) {
	got := Clean(store.RawPost{
		ID:   "1",
		Text: "Dogs love cats! #pets",
	})
	if got.ID != "1" {
		t.Errorf("id = %q, want 1", got.ID)
	}
	if got.CleanText != "dog love cat" {
		t.Errorf("clean text = %q, want %q", got.CleanText, "dog love cat")
	}
	if got.ExtractedURLs != nil {
		t.Errorf("extracted urls = %v, want absent", *got.ExtractedURLs)
	}
}

func TestCleanExtractsURLs(t *testing.T) {
	got := Clean(store.RawPost{
		ID:   "1",
		Text: "read https://a.example/x and www.b.example now",
	})
	if got.ExtractedURLs == nil {
		t.Fatal("extracted urls absent")
	}
	if want := "https://a.example/x, www.b.example"; *got.ExtractedURLs != want {
		t.Errorf("extracted urls = %q, want %q", *got.ExtractedURLs, want)
	}
}

func TestCleanBlankURLDropped(t *testing.T) {
	tests := []struct {
		name string
		url  *string
		want *string
	}{
		{"nil stays absent", nil, nil},
		{"blank becomes absent", strPtr("   "), nil},
		{"real url kept", strPtr("https://example.com/p/1"), strPtr("https://example.com/p/1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(store.RawPost{ID: "1", Text: "hello world", URL: tt.url})
			switch {
			case tt.want == nil && got.URL != nil:
				t.Errorf("url = %q, want absent", *got.URL)
			case tt.want != nil && (got.URL == nil || *got.URL != *tt.want):
				t.Errorf("url = %v, want %q", got.URL, *tt.want)
			}
		})
	}
}

func TestCleanClampsNegativeLikes(t *testing.T) {
	tests := []struct {
		name  string
		likes *int
		want  *int
	}{
		{"absent stays absent", nil, nil},
		{"negative clamped", intPtr(-7), intPtr(0)},
		{"zero kept", intPtr(0), intPtr(0)},
		{"positive kept", intPtr(42), intPtr(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(store.RawPost{ID: "1", Text: "hello world", Likes: tt.likes})
			switch {
			case tt.want == nil && got.Likes != nil:
				t.Errorf("likes = %d, want absent", *got.Likes)
			case tt.want != nil && (got.Likes == nil || *got.Likes != *tt.want):
				t.Errorf("likes = %v, want %d", got.Likes, *tt.want)
			}
		})
	}
}

func TestCleanSplitsTimestamp(t *testing.T) {
	posted := time.Date(2024, 6, 1, 14, 30, 5, 0, time.UTC)
	got := Clean(store.RawPost{ID: "1", Text: "hello world", PostedAt: timePtr(posted)})

	if got.DateOnly == nil || *got.DateOnly != "2024-06-01" {
		t.Errorf("date = %v, want 2024-06-01", got.DateOnly)
	}
	if got.TimeOnly == nil || *got.TimeOnly != "14:30:05" {
		t.Errorf("time = %v, want 14:30:05", got.TimeOnly)
	}

	noDate := Clean(store.RawPost{ID: "2", Text: "hello world"})
	if noDate.DateOnly != nil || noDate.TimeOnly != nil {
		t.Error("absent timestamp produced date or time parts")
	}
}

func TestRunUpdatesAllPosts(t *testing.T) {
	fs := newFakeStore(
		store.RawPost{ID: "1", Text: "Cats love naps"},
		store.RawPost{ID: "2", Text: "Dogs chase birds"},
		store.RawPost{ID: "3", Text: "!!!"},
	)
	c := New(fs, 2)

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Fetched != 3 || stats.Updated != 3 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want fetched=3 updated=3 failed=0", stats)
	}
	if got := fs.updated["1"].CleanText; got != "cat love nap" {
		t.Errorf("post 1 clean text = %q", got)
	}
	// A post that normalizes to nothing is still written back, with empty
	// clean text; the index builder excludes it later.
	if got := fs.updated["3"].CleanText; got != "" {
		t.Errorf("post 3 clean text = %q, want empty", got)
	}
}

func TestRunSkipsFailedWrites(t *testing.T) {
	fs := newFakeStore(
		store.RawPost{ID: "1", Text: "cats"},
		store.RawPost{ID: "2", Text: "dogs"},
		store.RawPost{ID: "3", Text: "birds"},
	)
	fs.failIDs["2"] = true
	c := New(fs, 1)

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Updated != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want updated=2 failed=1", stats)
	}
	if _, ok := fs.updated["2"]; ok {
		t.Error("failed post recorded as updated")
	}
}

func TestRunFetchErrorAborts(t *testing.T) {
	fs := newFakeStore()
	fs.fetchErr = errors.New("connection refused")

	_, err := New(fs, 1).Run(context.Background())
	if err == nil {
		t.Fatal("Run succeeded despite fetch failure")
	}
}

func TestRunEmptyStore(t *testing.T) {
	stats, err := New(newFakeStore(), 4).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats != (Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	fs := newFakeStore(store.RawPost{ID: "1", Text: "Cats love cats"})
	c := New(fs, 1)

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := fs.updated["1"]
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second := fs.updated["1"]; second.CleanText != first.CleanText {
		t.Errorf("re-run changed clean text: %q vs %q", second.CleanText, first.CleanText)
	}
}
