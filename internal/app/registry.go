package app

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/internal/domain"
	"github.com/yourusername/songdl-go/pkg/logger"
)

// Registry keeps the state of every download task in memory. All reads
// return snapshots so callers never share a record with a running pipeline.
type Registry struct {
	tasks       map[string]*domain.DownloadTask
	multiLogger *logger.MultiLogger
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry. multiLogger may be nil.
func NewRegistry(multiLogger *logger.MultiLogger) *Registry {
	return &Registry{
		tasks:       make(map[string]*domain.DownloadTask),
		multiLogger: multiLogger,
	}
}

// Create registers a new task and returns its identifier
func (r *Registry) Create(titleHint string, initial domain.TaskStatus) string {
	task := domain.NewDownloadTask(titleHint, initial)

	r.mu.Lock()
	r.tasks[task.ID] = task
	r.mu.Unlock()

	r.event("task_created",
		zap.String("id", task.ID),
		zap.String("title", titleHint),
		zap.String("status", string(task.Status)))
	return task.ID
}

// MarkDownloading attaches the resolved track and enters the download phase
func (r *Registry) MarkDownloading(id string, track domain.ResolvedTrack) error {
	return r.update(id, func(t *domain.DownloadTask) error {
		return t.MarkDownloading(track)
	})
}

// UpdateProgress applies a byte-count progress event
func (r *Registry) UpdateProgress(id string, downloaded, total int64) error {
	return r.update(id, func(t *domain.DownloadTask) error {
		return t.ApplyProgress(downloaded, total)
	})
}

// MarkConverting moves the task into the transcoding phase
func (r *Registry) MarkConverting(id string) error {
	return r.update(id, func(t *domain.DownloadTask) error {
		return t.MarkConverting()
	})
}

// RestartDownload resets task id for a new acquisition attempt
func (r *Registry) RestartDownload(id string) error {
	return r.update(id, func(t *domain.DownloadTask) error {
		return t.RestartDownload()
	})
}

// Complete stores the artifact and finishes the task
func (r *Registry) Complete(id string, artifact domain.Artifact) error {
	err := r.update(id, func(t *domain.DownloadTask) error {
		return t.MarkDone(artifact)
	})
	if err == nil {
		r.event("task_done",
			zap.String("id", id),
			zap.String("file", artifact.FilePath),
			zap.Int64("size", artifact.SizeBytes))
	}
	return err
}

// Fail finishes the task with an error message
func (r *Registry) Fail(id string, cause error) error {
	err := r.update(id, func(t *domain.DownloadTask) error {
		return t.MarkFailed(cause)
	})
	if err == nil {
		r.event("task_failed", zap.String("id", id), zap.Error(cause))
		if r.multiLogger != nil {
			r.multiLogger.LogAppError("Task failed", zap.String("id", id), zap.Error(cause))
		}
	}
	return err
}

// Get returns a snapshot of one task
func (r *Registry) Get(id string) (domain.DownloadTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return domain.DownloadTask{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return task.Snapshot(), nil
}

// List returns snapshots of all tasks, oldest first
func (r *Registry) List() []domain.DownloadTask {
	r.mu.RLock()
	tasks := make([]domain.DownloadTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// Sink returns a progress sink that feeds provider events into task id
func (r *Registry) Sink(id string) domain.ProgressSink {
	return &taskSink{registry: r, id: id}
}

func (r *Registry) update(id string, fn func(*domain.DownloadTask) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	// Mutate a copy so a rejected transition leaves the record untouched
	next := *task
	if err := fn(&next); err != nil {
		return err
	}
	*task = next
	return nil
}

func (r *Registry) event(name string, fields ...zap.Field) {
	if r.multiLogger != nil {
		r.multiLogger.LogTaskEvent(name, fields...)
	}
}

// taskSink adapts provider callbacks to registry updates. Errors are dropped
// because a provider cannot act on them.
type taskSink struct {
	registry *Registry
	id       string
}

func (s *taskSink) OnProgress(downloaded, total int64) {
	_ = s.registry.UpdateProgress(s.id, downloaded, total)
}

func (s *taskSink) OnPhaseChange(phase domain.TaskStatus) {
	switch phase {
	case domain.StatusConverting:
		_ = s.registry.MarkConverting(s.id)
	case domain.StatusDownloading:
		_ = s.registry.RestartDownload(s.id)
	}
}
