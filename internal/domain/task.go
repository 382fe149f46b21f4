package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current phase of a download task
type TaskStatus string

const (
	StatusSearching   TaskStatus = "searching"
	StatusDownloading TaskStatus = "downloading"
	StatusConverting  TaskStatus = "converting"
	StatusDone        TaskStatus = "done"
	StatusError       TaskStatus = "error"
)

// IsTerminal reports whether no further transition is allowed
func (s TaskStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// CanTransitionTo checks a status change against the task state machine.
// Staying in downloading is allowed so progress updates can be applied.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case StatusSearching:
		return next == StatusDownloading || next == StatusConverting || next == StatusError
	case StatusDownloading:
		return next == StatusDownloading || next == StatusConverting || next == StatusDone || next == StatusError
	case StatusConverting:
		return next == StatusDone || next == StatusError
	default:
		return false
	}
}

// DownloadTask is one resolve-and-acquire request
type DownloadTask struct {
	ID           string         `json:"id"`
	Status       TaskStatus     `json:"status"`
	Percent      int            `json:"percent"`
	Title        string         `json:"title"`
	Query        string         `json:"query,omitempty"`
	Track        *ResolvedTrack `json:"track,omitempty"`
	Result       *Artifact      `json:"result,omitempty"`
	ErrorMessage string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewDownloadTask creates a task in its initial state. Only searching and
// downloading are valid initial states.
func NewDownloadTask(titleHint string, initial TaskStatus) *DownloadTask {
	if initial != StatusDownloading {
		initial = StatusSearching
	}
	now := time.Now()
	return &DownloadTask{
		ID:        uuid.New().String(),
		Status:    initial,
		Title:     titleHint,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (t *DownloadTask) transition(next TaskStatus) error {
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = time.Now()
	return nil
}

// MarkDownloading records the resolved track and enters the download phase
func (t *DownloadTask) MarkDownloading(track ResolvedTrack) error {
	if t.Status == StatusDownloading {
		t.Track = &track
		t.Title = track.Title
		t.UpdatedAt = time.Now()
		return nil
	}
	if err := t.transition(StatusDownloading); err != nil {
		return err
	}
	t.Track = &track
	t.Title = track.Title
	t.Percent = 0
	return nil
}

// RestartDownload begins a fresh transfer after a failed acquisition
// attempt. It is the only way back from converting to downloading, and it
// resets percent because the next attempt counts its own bytes.
func (t *DownloadTask) RestartDownload() error {
	if t.Status != StatusConverting && t.Status != StatusDownloading {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusDownloading)
	}
	t.Status = StatusDownloading
	t.Percent = 0
	t.UpdatedAt = time.Now()
	return nil
}

// ApplyProgress updates the percentage from transferred byte counts.
// Percent never decreases while downloading; late byte counts that arrive
// after conversion started are ignored.
func (t *DownloadTask) ApplyProgress(downloaded, total int64) error {
	if t.Status == StatusConverting {
		return nil
	}
	if err := t.transition(StatusDownloading); err != nil {
		return err
	}
	if total <= 0 {
		return nil
	}
	pct := int(downloaded * 100 / total)
	if pct > 100 {
		pct = 100
	}
	if pct > t.Percent {
		t.Percent = pct
	}
	return nil
}

// MarkConverting signals that the transfer finished and transcoding began
func (t *DownloadTask) MarkConverting() error {
	if t.Status == StatusConverting {
		return nil
	}
	if err := t.transition(StatusConverting); err != nil {
		return err
	}
	t.Percent = 100
	return nil
}

// MarkDone stores the produced artifact
func (t *DownloadTask) MarkDone(artifact Artifact) error {
	if err := t.transition(StatusDone); err != nil {
		return err
	}
	t.Percent = 100
	t.Result = &artifact
	return nil
}

// MarkFailed records the failure reason
func (t *DownloadTask) MarkFailed(err error) error {
	if terr := t.transition(StatusError); terr != nil {
		return terr
	}
	t.ErrorMessage = TaskErrorMessage(err)
	return nil
}

// Snapshot returns a deep copy that is safe to hand out to readers
func (t *DownloadTask) Snapshot() DownloadTask {
	cp := *t
	if t.Track != nil {
		track := *t.Track
		cp.Track = &track
	}
	if t.Result != nil {
		result := *t.Result
		cp.Result = &result
	}
	return cp
}
