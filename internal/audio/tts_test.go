package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTTSServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Query().Get("q") == "" {
			http.Error(w, "missing q", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3" + r.URL.Query().Get("tl")))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSynthesizeCaches(t *testing.T) {
	var hits int32
	srv := newTTSServer(t, &hits)
	dir := filepath.Join(t.TempDir(), "audio")
	tts := NewTTSService(dir, WithTTSBaseURL(srv.URL))
	ctx := context.Background()

	path, err := tts.Synthesize(ctx, "묘사하다", LangKorean)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if filepath.Base(path) != FileName("묘사하다", LangKorean) {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "ID3ko" {
		t.Errorf("cached file = %q, want language-specific body", data)
	}

	if _, err := tts.Synthesize(ctx, "묘사하다", LangKorean); err != nil {
		t.Fatalf("second Synthesize() error = %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("server hits = %d, want 1", hits)
	}

	files, err := tts.List()
	if err != nil || len(files) != 1 {
		t.Fatalf("List() = %v, %v", files, err)
	}
}

func TestSynthesizeFailureLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	dir := t.TempDir()
	tts := NewTTSService(dir, WithTTSBaseURL(srv.URL))

	if _, err := tts.Synthesize(context.Background(), "deploy", LangEnglish); err == nil {
		t.Fatal("expected an error for a rejected request")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed synthesis left %d files", len(entries))
	}
}

func TestFileNameDependsOnLanguage(t *testing.T) {
	if FileName("tensor", LangEnglish) == FileName("tensor", LangKorean) {
		t.Error("same file name for different languages")
	}
	if FileName(" tensor ", LangEnglish) != FileName("tensor", LangEnglish) {
		t.Error("file name not stable across whitespace")
	}
}

func TestPruneAndDelete(t *testing.T) {
	dir := t.TempDir()
	tts := NewTTSService(dir)
	old := filepath.Join(dir, "en_old.mp3")
	fresh := filepath.Join(dir, "en_fresh.mp3")
	os.WriteFile(old, []byte("x"), 0644)
	os.WriteFile(fresh, []byte("x"), 0644)
	past := time.Now().Add(-48 * time.Hour)
	os.Chtimes(old, past, past)

	removed, err := tts.Prune(24 * time.Hour)
	if err != nil || removed != 1 {
		t.Fatalf("Prune() = %d, %v; want 1", removed, err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old file survived prune")
	}

	if err := tts.Delete("en_fresh.mp3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := tts.Delete("en_fresh.mp3"); err != nil {
		t.Errorf("Delete() of a missing file = %v", err)
	}
}

func TestPlayerEngine(t *testing.T) {
	var hits int32
	srv := newTTSServer(t, &hits)
	tts := NewTTSService(t.TempDir(), WithTTSBaseURL(srv.URL))

	if NewPlayerEngine(tts, "", "").Available() {
		t.Error("engine without a player command reported available")
	}
	if NewPlayerEngine(tts, "lingofocus-no-such-player", "").Available() {
		t.Error("engine with a missing player reported available")
	}

	engine := NewPlayerEngine(tts, "true", t.TempDir())
	if !engine.Available() {
		t.Skip("true(1) not on PATH")
	}
	if err := engine.Say(context.Background(), "compare", LangEnglish); err != nil {
		t.Errorf("Say() error = %v", err)
	}
	if err := engine.Cue(context.Background(), CueTick); err != nil {
		t.Errorf("Cue() with no cue file = %v", err)
	}
}
