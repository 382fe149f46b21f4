package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/songdl-go/internal/domain"
)

type recordingNotifier struct {
	mu     sync.Mutex
	done   []string
	failed []string
}

func (n *recordingNotifier) NotifyTaskDone(title, filename string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.done = append(n.done, filename)
}

func (n *recordingNotifier) NotifyTaskFailed(title string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, title)
}

type recordingPostProcessor struct {
	mu     sync.Mutex
	seen   []string
	err    error
	panics bool
}

func (p *recordingPostProcessor) Process(ctx context.Context, artifact domain.Artifact, track domain.ResolvedTrack, cfg domain.AudioConfig) error {
	if p.panics {
		panic("corrupt tag")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, artifact.FilePath)
	return p.err
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	registry     *Registry
	search       *fakeSearch
	provider     *fakeProvider
	notifier     *recordingNotifier
	post         *recordingPostProcessor
	config       *domain.DownloadConfig
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	f := &orchestratorFixture{
		registry: NewRegistry(nil),
		search: &fakeSearch{results: []domain.Candidate{
			{Title: "Song X (Live)", DurationSeconds: 240, RawIdentifier: "live", SourceURL: "https://www.youtube.com/watch?v=live"},
			{Title: "Song X (Official Audio)", DurationSeconds: 240, RawIdentifier: "audio", SourceURL: "https://www.youtube.com/watch?v=audio"},
		}},
		provider: &fakeProvider{name: "yt-dlp", kind: domain.KindGeneral},
		notifier: &recordingNotifier{},
		post:     &recordingPostProcessor{},
		config: &domain.DownloadConfig{
			OutputDir:          t.TempDir(),
			Audio:              domain.DefaultAudioConfig(),
			MaxDurationSeconds: 900,
		},
	}

	resolver := NewResolver(nil, f.search, NewRanker(900), testSearchConfig(), nil)
	chain := NewChain([]domain.AcquisitionProvider{f.provider}, testCatalogHosts, time.Second, nil)
	f.orchestrator = NewOrchestrator(resolver, chain, f.registry,
		[]domain.PostProcessor{f.post}, f.notifier, f.config, nil)
	return f
}

func (f *orchestratorFixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.orchestrator.Wait(ctx))
}

func TestOrchestrator_SearchDownloadSuccess(t *testing.T) {
	f := newOrchestratorFixture(t)

	id := f.orchestrator.StartSearchDownload("song x")
	f.wait(t)

	task, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, task.Status)
	assert.Equal(t, 100, task.Percent)
	assert.Equal(t, "Song X (Official Audio)", task.Title)
	require.NotNil(t, task.Result)

	expected := filepath.Join(f.config.OutputDir, "Song X (Official Audio).mp3")
	assert.Equal(t, expected, task.Result.FilePath)
	assert.FileExists(t, expected)
	assert.NoDirExists(t, filepath.Join(f.config.StagingDir(), id))

	assert.Len(t, f.post.seen, 1)
	assert.Equal(t, []string{"Song X (Official Audio).mp3"}, f.notifier.done)
}

func TestOrchestrator_DirectDownload(t *testing.T) {
	f := newOrchestratorFixture(t)
	track := domain.ResolvedTrack{ID: "abc", Title: "Direct", SourceURL: "https://www.youtube.com/watch?v=abc"}

	id := f.orchestrator.StartDownload(track)
	task, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.NotEqual(t, domain.StatusSearching, task.Status)

	f.wait(t)

	task, err = f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, task.Status)
	assert.Empty(t, f.search.queries)
}

func TestOrchestrator_NotFound(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.search.results = nil

	id := f.orchestrator.StartSearchDownload("nonexistent-query-xyz")
	f.wait(t)

	task, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, task.Status)
	assert.Contains(t, task.ErrorMessage, "not found")
	assert.Nil(t, task.Result)
	assert.Equal(t, 0, f.provider.callCount())
	assert.Equal(t, []string{"nonexistent-query-xyz"}, f.notifier.failed)
}

func TestOrchestrator_RejectsLongTrack(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.search.results = []domain.Candidate{{Title: "Full Album", DurationSeconds: 3600, RawIdentifier: "x", SourceURL: "https://www.youtube.com/watch?v=x"}}

	id := f.orchestrator.StartSearchDownload("full album")
	f.wait(t)

	task, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, task.Status)
	assert.Contains(t, task.ErrorMessage, domain.ErrTrackTooLong.Error())
	assert.Equal(t, 0, f.provider.callCount())
}

func TestOrchestrator_AcquisitionFailureKeepsStaging(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.provider.err = errors.New("ERROR: Video unavailable")

	id := f.orchestrator.StartSearchDownload("song x")
	f.wait(t)

	task, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, task.Status)
	assert.Contains(t, task.ErrorMessage, "Video unavailable")
	assert.DirExists(t, filepath.Join(f.config.StagingDir(), id))
}

func TestOrchestrator_PostProcessErrorIsNotFatal(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.post.err = errors.New("id3: unsupported frame")

	id := f.orchestrator.StartSearchDownload("song x")
	f.wait(t)

	task, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, task.Status)
}

func TestOrchestrator_PanicFailsTask(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.post.panics = true

	id := f.orchestrator.StartSearchDownload("song x")
	f.wait(t)

	task, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, task.Status)
	assert.Contains(t, task.ErrorMessage, "internal error")
}

func TestOrchestrator_ConcurrentTasksDoNotCollide(t *testing.T) {
	f := newOrchestratorFixture(t)

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = f.orchestrator.StartSearchDownload("song x")
	}
	f.wait(t)

	files := make(map[string]bool)
	for _, id := range ids {
		task, err := f.registry.Get(id)
		require.NoError(t, err)
		require.Equal(t, domain.StatusDone, task.Status, task.ErrorMessage)
		files[task.Result.FilePath] = true
	}
	assert.Len(t, files, 5, "each task promotes its own file")

	entries, err := os.ReadDir(f.config.OutputDir)
	require.NoError(t, err)
	mp3s := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".mp3" {
			mp3s++
		}
	}
	assert.Equal(t, 5, mp3s)
}

func TestOrchestrator_WaitHonoursContext(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.provider.block = true
	chain := NewChain([]domain.AcquisitionProvider{f.provider}, testCatalogHosts, time.Second, nil)
	f.orchestrator.chain = chain

	f.orchestrator.StartDownload(domain.ResolvedTrack{Title: "slow", SourceURL: "https://www.youtube.com/watch?v=slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.orchestrator.Wait(ctx), context.DeadlineExceeded)

	f.wait(t)
}
