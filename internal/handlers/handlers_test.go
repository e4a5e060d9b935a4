package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lingofocus/internal/audio"
	"lingofocus/internal/clock"
	"lingofocus/internal/models"
	"lingofocus/internal/security"
	"lingofocus/internal/seed"
	"lingofocus/internal/service"
	"lingofocus/internal/session"
	"lingofocus/internal/store"
)

type fakeGenerator struct{}

func (fakeGenerator) GenerateWordSet(_ context.Context, category models.Category, topic string) (models.Collection, error) {
	return models.Collection{
		Kind:     models.KindVocabulary,
		Category: category,
		Topic:    topic,
		Items:    []models.Item{{Prompt: "여권", Answer: "passport", Tag: "noun"}},
	}, nil
}

func (fakeGenerator) GenerateResponseSet(_ context.Context, parent models.Collection) (models.Collection, error) {
	return models.Collection{
		Category: parent.Category,
		Topic:    parent.Topic,
		Items:    []models.Item{{Prompt: "나는 / 여권을 / 잃어버렸다", Answer: "I lost my passport.", Tag: "pattern"}},
	}, nil
}

type testServer struct {
	handler http.Handler
	store   *store.Store
}

type serverOption func(*Deps, *store.Store)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	st := store.New(store.NewMemoryBackend(), store.WithSeeds(seed.Collections))
	fake := clock.NewFake(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))

	d := Deps{
		Collections: service.NewCollectionService(st, nil, zerolog.Nop()),
		Study:       service.NewStudyService(st, nil, zerolog.Nop(), service.WithClock(fake)),
		Backup:      service.NewBackupService(st, t.TempDir(), zerolog.Nop()),
		Logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&d, st)
	}
	t.Cleanup(d.Study.Stop)
	return &testServer{handler: New(d).Routes(), store: st}
}

func (s *testServer) do(t *testing.T, method, target string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) json(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return s.do(t, method, target, r, http.Header{"Content-Type": {"application/json"}})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func multipartBody(t *testing.T, field, filename, content string, extra map[string]string) (io.Reader, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	for k, v := range extra {
		mw.WriteField(k, v)
	}
	mw.Close()
	return &buf, http.Header{"Content-Type": {mw.FormDataContentType()}}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.json(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCollectionsAPI(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"categories", http.MethodGet, "/api/categories", http.StatusOK},
		{"list all", http.MethodGet, "/api/collections", http.StatusOK},
		{"list category", http.MethodGet, "/api/collections?category=opic", http.StatusOK},
		{"unknown category", http.MethodGet, "/api/collections?category=poetry", http.StatusBadRequest},
		{"get seed", http.MethodGet, "/api/collections/seed-opic", http.StatusOK},
		{"get missing", http.MethodGet, "/api/collections/nope", http.StatusNotFound},
		{"responses of seed", http.MethodGet, "/api/collections/seed-opic/responses", http.StatusOK},
		{"delete seed", http.MethodDelete, "/api/collections/seed-opic", http.StatusForbidden},
		{"delete missing", http.MethodDelete, "/api/collections/nope", http.StatusNotFound},
		{"generate without generator", http.MethodPost, "/api/collections/generate", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ""
			if tt.method == http.MethodPost {
				body = `{"category":"OPIC","topic":"Travel"}`
			}
			rec := srv.json(t, tt.method, tt.target, body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := srv.json(t, http.MethodGet, "/api/collections?category=opic", "")
	var list []models.Collection
	decode(t, rec, &list)
	if len(list) == 0 || list[0].Category != models.CategoryOPIc {
		t.Errorf("opic collections = %+v", list)
	}

	var cats categoriesResponse
	decode(t, srv.json(t, http.MethodGet, "/api/categories", ""), &cats)
	if cats.CanGenerate || len(cats.Categories) != len(models.Categories) || len(cats.Topics) == 0 {
		t.Errorf("categories = %+v", cats)
	}
}

func TestGenerateEndpoints(t *testing.T) {
	srv := newTestServer(t, func(d *Deps, st *store.Store) {
		d.Collections = service.NewCollectionService(st, fakeGenerator{}, zerolog.Nop())
	})

	rec := srv.json(t, http.MethodPost, "/api/collections/generate", `{"category":"opic","topic":"Travel"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d; body %s", rec.Code, rec.Body.String())
	}
	var parent models.Collection
	decode(t, rec, &parent)
	if parent.ID == "" || parent.Topic != "Travel" {
		t.Fatalf("generated = %+v", parent)
	}

	rec = srv.json(t, http.MethodPost, "/api/collections/"+parent.ID+"/responses/generate", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("responses status = %d; body %s", rec.Code, rec.Body.String())
	}

	var responses []models.Collection
	decode(t, srv.json(t, http.MethodGet, "/api/collections/"+parent.ID+"/responses", ""), &responses)
	if len(responses) != 1 || responses[0].ParentID != parent.ID {
		t.Errorf("responses = %+v", responses)
	}

	rec = srv.json(t, http.MethodDelete, "/api/collections/"+parent.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}

	bad := []string{`{"category":"opic","topic":" "}`, `{"category":"poetry","topic":"x"}`, `{oops`}
	for _, body := range bad {
		if rec := srv.json(t, http.MethodPost, "/api/collections/generate", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestGenerateIsRateLimited(t *testing.T) {
	srv := newTestServer(t, func(d *Deps, st *store.Store) {
		d.Collections = service.NewCollectionService(st, fakeGenerator{}, zerolog.Nop())
		d.Limiter = security.NewRateLimiter(1, time.Minute)
	})

	body := `{"category":"opic","topic":"Travel"}`
	if rec := srv.json(t, http.MethodPost, "/api/collections/generate", body); rec.Code != http.StatusCreated {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := srv.json(t, http.MethodPost, "/api/collections/generate", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if rec := srv.json(t, http.MethodGet, "/api/collections", ""); rec.Code != http.StatusOK {
		t.Errorf("reads should not be limited, status = %d", rec.Code)
	}
}

func TestImportCollection(t *testing.T) {
	srv := newTestServer(t)

	body, header := multipartBody(t, "file", "kitchen.csv", "korean,english\n냄비,pot\n칼,knife\n,\n", map[string]string{"topic": "Kitchen"})
	rec := srv.do(t, http.MethodPost, "/api/collections/import", body, header)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	var resp importResponse
	decode(t, rec, &resp)
	if resp.Collection.Topic != "Kitchen" || len(resp.Collection.Items) != 2 || resp.Collection.Category != models.CategoryCustom {
		t.Errorf("imported = %+v", resp)
	}

	body, header = multipartBody(t, "file", "kitchen.pdf", "whatever", nil)
	if rec := srv.do(t, http.MethodPost, "/api/collections/import", body, header); rec.Code != http.StatusBadRequest {
		t.Errorf("pdf status = %d, want 400", rec.Code)
	}

	if rec := srv.json(t, http.MethodPost, "/api/collections/import", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("non-multipart status = %d, want 400", rec.Code)
	}
}

func TestSessionAPI(t *testing.T) {
	srv := newTestServer(t)

	if rec := srv.json(t, http.MethodGet, "/api/session", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("no session status = %d, want 404", rec.Code)
	}
	if rec := srv.json(t, http.MethodPost, "/api/session", `{"collectionId":"nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown collection status = %d, want 404", rec.Code)
	}
	if rec := srv.json(t, http.MethodPost, "/api/session", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d, want 400", rec.Code)
	}

	rec := srv.json(t, http.MethodPost, "/api/session", `{"collectionId":"seed-opic"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d; body %s", rec.Code, rec.Body.String())
	}
	var active service.ActiveSession
	decode(t, rec, &active)
	if active.CollectionID != "seed-opic" || active.State.Phase != session.PhaseCountdown || active.State.Card == nil {
		t.Errorf("active = %+v", active)
	}

	rec = srv.json(t, http.MethodPost, "/api/session/pause", "")
	var state session.State
	decode(t, rec, &state)
	if rec.Code != http.StatusOK || !state.Paused {
		t.Errorf("pause: status %d, state %+v", rec.Code, state)
	}

	if rec := srv.json(t, http.MethodPost, "/api/session/jump", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action status = %d, want 400", rec.Code)
	}
	if rec := srv.json(t, http.MethodGet, "/api/session/summary", ""); rec.Code != http.StatusOK {
		t.Errorf("summary status = %d", rec.Code)
	}

	if rec := srv.json(t, http.MethodPost, "/api/session/abort", ""); rec.Code != http.StatusOK {
		t.Errorf("abort status = %d", rec.Code)
	}
	if rec := srv.json(t, http.MethodPost, "/api/session/next", ""); rec.Code != http.StatusConflict {
		t.Errorf("next after abort status = %d, want 409", rec.Code)
	}
}

func TestSettingsAPI(t *testing.T) {
	srv := newTestServer(t)

	var got models.Settings
	decode(t, srv.json(t, http.MethodGet, "/api/settings", ""), &got)
	if got != models.DefaultSettings() {
		t.Errorf("initial settings = %+v", got)
	}

	rec := srv.json(t, http.MethodPut, "/api/settings", `{"revealDelaySeconds":99,"speakPromptAloud":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	decode(t, rec, &got)
	if got.RevealDelaySeconds != models.MaxDelaySeconds || !got.SpeakPromptAloud || got.AutoAdvanceDelaySeconds != 3 {
		t.Errorf("updated settings = %+v", got)
	}
	if stored := srv.store.Settings(context.Background()); stored != got {
		t.Errorf("stored settings = %+v, want %+v", stored, got)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	srv.store.IncrementReviewCount(ctx, "word-1")

	rec := srv.json(t, http.MethodGet, "/api/backup", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "lingofocus_backup_") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	blob := rec.Body.String()

	if rec := srv.json(t, http.MethodPost, "/api/reset", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed reset status = %d, want 400", rec.Code)
	}
	if rec := srv.json(t, http.MethodPost, "/api/reset?confirm=yes", ""); rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if n := srv.store.GetReviewCount(ctx, "word-1"); n != 0 {
		t.Fatalf("count after reset = %d", n)
	}

	if rec := srv.json(t, http.MethodPost, "/api/backup", blob); rec.Code != http.StatusOK {
		t.Fatalf("raw upload status = %d; body %s", rec.Code, rec.Body.String())
	}
	if n := srv.store.GetReviewCount(ctx, "word-1"); n != 1 {
		t.Errorf("count after restore = %d, want 1", n)
	}

	body, header := multipartBody(t, "file", "backup.json", blob, nil)
	if rec := srv.do(t, http.MethodPost, "/api/backup", body, header); rec.Code != http.StatusOK {
		t.Errorf("multipart upload status = %d", rec.Code)
	}

	if rec := srv.json(t, http.MethodPost, "/api/backup", "not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("garbage upload status = %d, want 400", rec.Code)
	}
}

func TestEmailBackupDisabled(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.json(t, http.MethodPost, "/api/backup/email", `{"to":"me@example.com"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestAudioEndpoint(t *testing.T) {
	if rec := newTestServer(t).json(t, http.MethodGet, "/api/audio?text=hello", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without TTS status = %d, want 503", rec.Code)
	}

	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("ID3 fake mp3"))
	}))
	defer upstream.Close()

	tts := audio.NewTTSService(t.TempDir(), audio.WithTTSBaseURL(upstream.URL))
	srv := newTestServer(t, func(d *Deps, _ *store.Store) { d.TTS = tts })

	for i := 0; i < 2; i++ {
		rec := srv.json(t, http.MethodGet, "/api/audio?text=%EC%97%AC%EA%B6%8C&lang=ko", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
			t.Errorf("Content-Type = %q", ct)
		}
		if rec.Body.String() != "ID3 fake mp3" {
			t.Errorf("body = %q", rec.Body.String())
		}
	}
	if hits.Load() != 1 {
		t.Errorf("upstream hits = %d, want 1 (second request served from cache)", hits.Load())
	}

	if rec := srv.json(t, http.MethodGet, "/api/audio?text=hi&lang=fr", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported lang status = %d, want 400", rec.Code)
	}
	if rec := srv.json(t, http.MethodGet, "/api/audio", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing text status = %d, want 400", rec.Code)
	}
}

func TestRequireToken(t *testing.T) {
	issuer := security.NewTokenIssuer("test-secret", time.Hour)
	srv := newTestServer(t, func(d *Deps, _ *store.Store) { d.Tokens = issuer })

	if rec := srv.json(t, http.MethodGet, "/api/settings", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}
	bad := http.Header{"Authorization": {"Bearer not-a-token"}}
	if rec := srv.do(t, http.MethodGet, "/api/settings", nil, bad); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}

	token, err := issuer.Issue("tablet")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	good := http.Header{"Authorization": {"Bearer " + token}}
	if rec := srv.do(t, http.MethodGet, "/api/settings", nil, good); rec.Code != http.StatusOK {
		t.Errorf("valid token status = %d", rec.Code)
	}
	if rec := srv.json(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz should stay open, status = %d", rec.Code)
	}
}
