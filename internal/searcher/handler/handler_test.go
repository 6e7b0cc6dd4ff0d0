package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/irlabs/postsearch/internal/indexer"
	"github.com/irlabs/postsearch/internal/indexer/artifact"
	"github.com/irlabs/postsearch/internal/searcher"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	store := artifact.NewStore(t.TempDir(), 2)
	snap := indexer.Build([]indexer.Document{
		{ID: "1", NormalizedText: "cat love cat"},
		{ID: "2", NormalizedText: "dog love cat"},
	})
	if _, err := store.Publish(snap); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	engine := searcher.New(store, 20)
	if err := engine.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	mux := http.NewServeMux()
	New(engine, nil, nil).Register(mux)
	return mux
}

func newUnloadedMux(t *testing.T) *http.ServeMux {
	t.Helper()
	engine := searcher.New(artifact.NewStore(t.TempDir(), 2), 20)
	mux := http.NewServeMux()
	New(engine, nil, nil).Register(mux)
	return mux
}

func get(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type searchBody struct {
	Query   string `json:"query"`
	Term    string `json:"term"`
	Signal  string `json:"signal"`
	Results []struct {
		DocID string  `json:"doc_id"`
		Score float64 `json:"score"`
	} `json:"results"`
}

func decodeSearch(t *testing.T, rec *httptest.ResponseRecorder) searchBody {
	t.Helper()
	var body searchBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestSearchEndpointReturnsRankedResults(t *testing.T) {
	mux := newTestMux(t)

	rec := get(t, mux, "/search?q=cats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeSearch(t, rec)
	if body.Term != "cat" || body.Signal != "" {
		t.Errorf("term = %q signal = %q, want cat and no signal", body.Term, body.Signal)
	}
	if len(body.Results) != 2 || body.Results[0].DocID != "1" {
		t.Errorf("results = %+v, want docs [1 2]", body.Results)
	}
}

// Queries that normalize to nothing or miss the index are explicit outcomes,
// not HTTP errors: 200 with a signal and an empty result list.
func TestSearchEndpointSignals(t *testing.T) {
	mux := newTestMux(t)

	tests := []struct {
		name   string
		target string
		signal string
	}{
		{"no valid term", "/search?q=%21%21%21", "no_valid_term"},
		{"term not found", "/search?q=unicorns", "term_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, mux, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			body := decodeSearch(t, rec)
			if body.Signal != tt.signal {
				t.Errorf("signal = %q, want %q", body.Signal, tt.signal)
			}
			if len(body.Results) != 0 {
				t.Errorf("results = %+v, want empty", body.Results)
			}
		})
	}
}

func TestSearchEndpointMissingQuery(t *testing.T) {
	rec := get(t, newTestMux(t), "/search")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEndpointsWhileUnloaded(t *testing.T) {
	mux := newUnloadedMux(t)

	if rec := get(t, mux, "/search?q=cats"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/search status = %d, want 503", rec.Code)
	}
	if rec := get(t, mux, "/posts/1"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/posts/1 status = %d, want 503", rec.Code)
	}
}

func TestPostMetadataEndpoint(t *testing.T) {
	mux := newTestMux(t)

	rec := get(t, mux, "/posts/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		PostID       string `json:"post_id"`
		DominantTerm string `json:"dominant_term"`
		TokenCount   int    `json:"token_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.PostID != "1" || body.DominantTerm != "cat" || body.TokenCount != 3 {
		t.Errorf("body = %+v", body)
	}

	if rec := get(t, mux, "/posts/999"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown post status = %d, want 404", rec.Code)
	}
	if rec := get(t, mux, "/posts/"); rec.Code != http.StatusBadRequest {
		t.Errorf("empty post id status = %d, want 400", rec.Code)
	}
}

func TestCacheStatsWithoutCache(t *testing.T) {
	rec := get(t, newTestMux(t), "/cache/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "disabled" {
		t.Errorf("body = %v, want status disabled", body)
	}
}
