package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"rolloutdb/pkg/config"
	"rolloutdb/pkg/journal"
	"rolloutdb/pkg/models"
)

func mkSeqs(tokens ...int) []models.Sequence {
	out := make([]models.Sequence, len(tokens))
	for i, tok := range tokens {
		out[i] = models.Sequence{Tokens: []int{tok}, Masks: []int{tok}, Score: 1}
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := config.Default()
	c.Batch.Size = 4
	return c
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	c := config.Default() // batch size unset
	if _, err := New(c, "test"); err == nil {
		t.Fatalf("expected error for missing batch size")
	}
}

func TestNewRequiresJournalPathWhenEnabled(t *testing.T) {
	c := testConfig(t)
	c.Journal.Enabled = true
	if _, err := New(c, "test"); err == nil {
		t.Fatalf("expected error for enabled journal without db_path")
	}
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	c := testConfig(t)
	a, err := New(c, "test")
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	mux := http.NewServeMux()
	a.setupHTTPHandlers(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("%s failed: %v", path, err)
		}
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s returned %d", path, res.StatusCode)
		}
		res.Body.Close()
	}

	res, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("/metrics failed: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("/metrics returned %d", res.StatusCode)
	}
	res.Body.Close()
}

func TestJournalWiredToBatches(t *testing.T) {
	c := testConfig(t)
	c.Batch.Size = 2
	c.Journal.Enabled = true
	c.Journal.DBPath = filepath.Join(t.TempDir(), "journal")

	a, err := New(c, "test")
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	defer journal.Close()

	eng := a.Engine()
	id, _ := eng.Register(1, 1, nil, 0)
	if _, err := eng.Submit(id, mkSeqs(1, 2)); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	b, err := eng.FormBatch()
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}

	got, err := journal.Get(b.Step)
	if err != nil {
		t.Fatalf("journal lookup failed: %v", err)
	}
	if got.Step != b.Step || len(got.Sequences) != 2 {
		t.Fatalf("journal recorded %+v, want step %d with 2 sequences", got, b.Step)
	}
}
