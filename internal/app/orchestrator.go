package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/internal/domain"
)

// Notifier is told about finished tasks
type Notifier interface {
	NotifyTaskDone(title, filename string)
	NotifyTaskFailed(title string, err error)
}

// Orchestrator runs resolve-and-acquire pipelines in the background and
// records their progress in the registry
type Orchestrator struct {
	resolver       *Resolver
	chain          *Chain
	registry       *Registry
	postProcessors []domain.PostProcessor
	notifier       Notifier
	config         *domain.DownloadConfig
	logger         *zap.Logger
	wg             sync.WaitGroup
}

// NewOrchestrator creates an orchestrator. notifier may be nil.
func NewOrchestrator(
	resolver *Resolver,
	chain *Chain,
	registry *Registry,
	postProcessors []domain.PostProcessor,
	notifier Notifier,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		resolver:       resolver,
		chain:          chain,
		registry:       registry,
		postProcessors: postProcessors,
		notifier:       notifier,
		config:         config,
		logger:         logger,
	}
}

// StartSearchDownload resolves query and downloads the result. It returns
// the task id immediately.
func (o *Orchestrator) StartSearchDownload(query string) string {
	id := o.registry.Create(query, domain.StatusSearching)
	o.spawn(id, query, nil)
	return id
}

// StartDownload acquires an already resolved track
func (o *Orchestrator) StartDownload(track domain.ResolvedTrack) string {
	id := o.registry.Create(track.Title, domain.StatusDownloading)
	o.spawn(id, track.Title, &track)
	return id
}

// Wait blocks until every started pipeline has finished or ctx is done
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) spawn(id, query string, track *domain.ResolvedTrack) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		// In-flight work is never cancelled; providers are bounded by their own timeouts.
		o.run(context.Background(), id, query, track)
	}()
}

func (o *Orchestrator) run(ctx context.Context, id, query string, track *domain.ResolvedTrack) {
	defer func() {
		if r := recover(); r != nil {
			o.fail(id, query, fmt.Errorf("internal error: %v", r))
		}
	}()

	o.logger.Info("Processing task", zap.String("id", id), zap.String("query", query))

	artifact, title, err := o.process(ctx, id, query, track)
	if err != nil {
		o.fail(id, title, err)
		return
	}

	if err := o.registry.Complete(id, artifact); err != nil {
		o.logger.Error("Failed to complete task", zap.String("id", id), zap.Error(err))
		return
	}

	o.logger.Info("Task completed",
		zap.String("id", id),
		zap.String("file", artifact.FilePath),
		zap.String("size", domain.HumanSize(artifact.SizeBytes)))

	if o.notifier != nil {
		o.notifier.NotifyTaskDone(title, artifact.Filename())
	}
}

func (o *Orchestrator) process(ctx context.Context, id, query string, track *domain.ResolvedTrack) (domain.Artifact, string, error) {
	if track == nil {
		resolved, err := o.resolver.Resolve(ctx, query)
		if err != nil {
			return domain.Artifact{}, query, err
		}
		track = &resolved
	}

	if o.config.MaxDurationSeconds > 0 && track.DurationSeconds > o.config.MaxDurationSeconds {
		return domain.Artifact{}, track.Title, fmt.Errorf("%w: %s is %ds, limit is %ds",
			domain.ErrTrackTooLong, track.Title, track.DurationSeconds, o.config.MaxDurationSeconds)
	}

	if err := o.registry.MarkDownloading(id, *track); err != nil {
		return domain.Artifact{}, track.Title, err
	}

	staging := filepath.Join(o.config.StagingDir(), id)
	artifact, err := o.chain.Acquire(ctx, *track, staging, o.config.Audio, o.registry.Sink(id))
	if err != nil {
		return domain.Artifact{}, track.Title, err
	}

	if err := o.registry.MarkConverting(id); err != nil {
		return domain.Artifact{}, track.Title, err
	}

	for _, pp := range o.postProcessors {
		if err := pp.Process(ctx, artifact, *track, o.config.Audio); err != nil {
			o.logger.Warn("Post-processing failed, keeping file as is",
				zap.String("id", id),
				zap.String("file", artifact.FilePath),
				zap.Error(err))
		}
	}

	promoted, err := Promote(artifact, o.config.OutputDir)
	if err != nil {
		return domain.Artifact{}, track.Title, err
	}

	if err := os.RemoveAll(staging); err != nil {
		o.logger.Warn("Failed to remove staging directory", zap.String("dir", staging), zap.Error(err))
	}
	return promoted, track.Title, nil
}

func (o *Orchestrator) fail(id, title string, err error) {
	if ferr := o.registry.Fail(id, err); ferr != nil {
		o.logger.Error("Failed to record task failure", zap.String("id", id), zap.Error(ferr))
	}

	o.logger.Error("Task failed", zap.String("id", id), zap.String("title", title), zap.Error(err))

	if o.notifier != nil {
		o.notifier.NotifyTaskFailed(title, err)
	}
}
