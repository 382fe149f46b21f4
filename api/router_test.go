package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/internal/app"
	"github.com/yourusername/songdl-go/internal/domain"
	"github.com/yourusername/songdl-go/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSearch struct {
	results []domain.Candidate
	err     error
}

func (s *stubSearch) Name() string { return "youtube" }

func (s *stubSearch) Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error) {
	return s.results, s.err
}

// stubProvider writes "<title>.mp3" into the attempt directory
type stubProvider struct {
	err error
}

func (p *stubProvider) Name() string              { return "yt-dlp" }
func (p *stubProvider) Kind() domain.ProviderKind { return domain.KindGeneral }

func (p *stubProvider) Acquire(ctx context.Context, track domain.ResolvedTrack, dir string, cfg domain.AudioConfig, sink domain.ProgressSink) (domain.Artifact, error) {
	if p.err != nil {
		return domain.Artifact{}, p.err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.Artifact{}, err
	}
	sink.OnProgress(50, 100)
	sink.OnProgress(100, 100)
	if err := os.WriteFile(filepath.Join(dir, track.Title+".mp3"), []byte("ID3-audio"), 0644); err != nil {
		return domain.Artifact{}, err
	}
	sink.OnPhaseChange(domain.StatusConverting)
	return app.Locate(dir, cfg.Extensions())
}

type testServer struct {
	router       *gin.Engine
	orchestrator *app.Orchestrator
	registry     *app.Registry
	search       *stubSearch
	provider     *stubProvider
	outputDir    string
	multiLogger  *logger.MultiLogger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	outputDir := t.TempDir()
	download := &domain.DownloadConfig{
		OutputDir:          outputDir,
		Audio:              domain.DefaultAudioConfig(),
		MaxDurationSeconds: 900,
	}

	ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{LogsDir: download.LogsDir(), Level: "info"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ml.Close() })

	ts := &testServer{
		search: &stubSearch{results: []domain.Candidate{
			{Title: "Song X (Live)", DurationSeconds: 240, RawIdentifier: "live", SourceURL: "https://www.youtube.com/watch?v=live"},
			{Title: "Song X (Official Audio)", DurationSeconds: 240, RawIdentifier: "audio", SourceURL: "https://www.youtube.com/watch?v=audio"},
		}},
		provider:    &stubProvider{},
		outputDir:   outputDir,
		multiLogger: ml,
	}

	searchCfg := &domain.SearchConfig{ResultCount: 10, QuerySuffix: "song", SuggestionLimit: 5, MetadataTimeout: time.Second}
	resolver := app.NewResolver(nil, ts.search, app.NewRanker(900), searchCfg, nil)
	chain := app.NewChain([]domain.AcquisitionProvider{ts.provider}, []string{"open.spotify.com"}, time.Second, nil)
	ts.registry = app.NewRegistry(ml)
	ts.orchestrator = app.NewOrchestrator(resolver, chain, ts.registry, nil, nil, download, nil)
	library := app.NewLibrary(download, nil, nil)

	ts.router = SetupRouter(Services{
		Resolver:     resolver,
		Orchestrator: ts.orchestrator,
		Registry:     ts.registry,
		Library:      library,
		MultiLogger:  ml,
		LogsDir:      download.LogsDir(),
	}, zap.NewNop())
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.orchestrator.Wait(ctx))
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, "ok", resp["status"])
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/search", map[string]string{"query": "song x"})
	require.Equal(t, http.StatusOK, w.Code)

	var track domain.ResolvedTrack
	decode(t, w, &track)
	assert.Equal(t, "Song X (Official Audio)", track.Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=audio", track.SourceURL)
	assert.Equal(t, "youtube", track.ProviderName)
}

func TestSearch_Errors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/search", map[string]string{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No query provided"}`, w.Body.String())

	ts.search.results = nil
	w = ts.do(t, http.MethodPost, "/api/v1/search", map[string]string{"query": "nothing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.search.err = errors.New("yt-dlp exploded")
	w = ts.do(t, http.MethodPost, "/api/v1/search", map[string]string{"query": "boom"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Search failed")
}

func TestSuggestions(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/suggestions", map[string]string{"query": "song"})
	require.Equal(t, http.StatusOK, w.Code)
	var candidates []domain.Candidate
	decode(t, w, &candidates)
	assert.Len(t, candidates, 2)

	w = ts.do(t, http.MethodPost, "/api/v1/suggestions", map[string]string{"query": "s"})
	assert.JSONEq(t, `[]`, w.Body.String())

	ts.search.err = errors.New("offline")
	w = ts.do(t, http.MethodPost, "/api/v1/suggestions", map[string]string{"query": "song"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSearchDownload_ProgressToDone(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/search-download", map[string]string{"query": "song x"})
	require.Equal(t, http.StatusOK, w.Code)

	var started map[string]string
	decode(t, w, &started)
	assert.Equal(t, "started", started["status"])
	require.NotEmpty(t, started["task_id"])

	ts.wait(t)

	w = ts.do(t, http.MethodGet, "/api/v1/progress/"+started["task_id"], nil)
	require.Equal(t, http.StatusOK, w.Code)

	var progress struct {
		Status  string `json:"status"`
		Percent int    `json:"percent"`
		Result  struct {
			Success   bool   `json:"success"`
			Filename  string `json:"filename"`
			Title     string `json:"title"`
			Size      int64  `json:"size"`
			SizeHuman string `json:"size_human"`
		} `json:"result"`
		Error string `json:"error"`
	}
	decode(t, w, &progress)
	assert.Equal(t, "done", progress.Status)
	assert.Equal(t, 100, progress.Percent)
	assert.True(t, progress.Result.Success)
	assert.Equal(t, "Song X (Official Audio).mp3", progress.Result.Filename)
	assert.Equal(t, "Song X (Official Audio)", progress.Result.Title)
	assert.Equal(t, int64(9), progress.Result.Size)
	assert.Equal(t, "9.0 B", progress.Result.SizeHuman)
	assert.Empty(t, progress.Error)

	assert.FileExists(t, filepath.Join(ts.outputDir, "Song X (Official Audio).mp3"))
}

func TestDownload_FailureReportsError(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.err = errors.New("HTTP Error 403")

	w := ts.do(t, http.MethodPost, "/api/v1/downloads", map[string]string{
		"url":   "https://www.youtube.com/watch?v=abc",
		"title": "Song Y",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var started map[string]string
	decode(t, w, &started)

	ts.wait(t)

	w = ts.do(t, http.MethodGet, "/api/v1/progress/"+started["task_id"], nil)
	require.Equal(t, http.StatusOK, w.Code)
	var progress map[string]interface{}
	decode(t, w, &progress)
	assert.Equal(t, "error", progress["status"])
	assert.Contains(t, progress["error"], "HTTP Error 403")
	assert.NotContains(t, progress, "result")
}

func TestDownload_RequiresURL(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/downloads", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No URL provided"}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/v1/search-download", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgress_UnknownTask(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/progress/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Unknown task"}`, w.Body.String())
}

func TestTasks_List(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/v1/search-download", map[string]string{"query": "song x"})
	ts.wait(t)

	w := ts.do(t, http.MethodGet, "/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Tasks []domain.DownloadTask `json:"tasks"`
		Count int                   `json:"count"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, domain.StatusDone, resp.Tasks[0].Status)
}

func TestLibrary_ListStreamDelete(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(ts.outputDir, "Track.mp3"), []byte("fake mp3 data"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(ts.outputDir, "notes.txt"), []byte("ignored"), 0644))

	w := ts.do(t, http.MethodGet, "/api/v1/library", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []app.LibraryEntry
	decode(t, w, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "Track.mp3", entries[0].Filename)
	assert.Equal(t, "Track", entries[0].Title)

	w = ts.do(t, http.MethodGet, "/api/v1/music/Track.mp3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "fake mp3 data", w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/music/missing.mp3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/delete", map[string]string{"filename": "../etc.mp3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/delete", map[string]string{"filename": "notes.txt"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.FileExists(t, filepath.Join(ts.outputDir, "notes.txt"))

	w = ts.do(t, http.MethodPost, "/api/v1/delete", map[string]string{"filename": "Track.mp3"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.NoFileExists(t, filepath.Join(ts.outputDir, "Track.mp3"))

	w = ts.do(t, http.MethodPost, "/api/v1/delete", map[string]string{"filename": "Track.mp3"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"File not found"}`, w.Body.String())
}

func TestLogs(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/v1/search-download", map[string]string{"query": "song x"})
	ts.wait(t)
	require.NoError(t, ts.multiLogger.Sync())

	w := ts.do(t, http.MethodGet, "/api/v1/logs/task", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count   int               `json:"count"`
		Entries []logger.LogEntry `json:"entries"`
	}
	decode(t, w, &resp)
	assert.GreaterOrEqual(t, resp.Count, 2)

	w = ts.do(t, http.MethodGet, "/api/v1/logs/task/search?q=task_done", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.Count)

	w = ts.do(t, http.MethodGet, "/api/v1/logs/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/logs/task?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/logs/categories", nil)
	assert.JSONEq(t, `{"categories":["task","error","acquire"]}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
