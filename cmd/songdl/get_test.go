package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/songdl-go/internal/app"
	"github.com/yourusername/songdl-go/internal/domain"
)

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "Queen - Bohemian Rhapsody", buildQuery("Bohemian Rhapsody", "Queen"))
	assert.Equal(t, "Bohemian Rhapsody", buildQuery(" Bohemian Rhapsody ", "  "))
}

func TestProgressLine(t *testing.T) {
	bar := newProgressBar()

	line := progressLine(bar, domain.DownloadTask{Status: domain.StatusDownloading, Percent: 50})
	assert.Contains(t, line, "50%")

	line = progressLine(bar, domain.DownloadTask{Status: domain.StatusDone, Percent: 100})
	assert.Contains(t, line, "100%")

	assert.Contains(t, progressLine(bar, domain.DownloadTask{Status: domain.StatusConverting}), "converting")
	assert.Contains(t, progressLine(bar, domain.DownloadTask{Status: domain.StatusError}), "Failed")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "3:54", formatDuration(234))
	assert.Equal(t, "0:07", formatDuration(7))
	assert.Equal(t, "15:00", formatDuration(900))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate("éééééééééééé", 10))
}

func TestWaitForTask_ReportsChangesUntilTerminal(t *testing.T) {
	registry := app.NewRegistry(nil)
	id := registry.Create("song", domain.StatusDownloading)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = registry.UpdateProgress(id, 50, 100)
		time.Sleep(300 * time.Millisecond)
		_ = registry.Fail(id, errors.New("HTTP Error 403"))
	}()

	var seen []domain.TaskStatus
	task := waitForTask(registry, id, func(t domain.DownloadTask) {
		seen = append(seen, t.Status)
	})

	assert.Equal(t, domain.StatusError, task.Status)
	assert.Equal(t, "HTTP Error 403", task.ErrorMessage)
	require.NotEmpty(t, seen)
	assert.Equal(t, domain.StatusDownloading, seen[0])
	assert.Equal(t, domain.StatusError, seen[len(seen)-1])
}

func TestWaitForTask_UnknownTask(t *testing.T) {
	task := waitForTask(app.NewRegistry(nil), "missing", func(domain.DownloadTask) {})
	assert.Equal(t, domain.StatusError, task.Status)
	assert.Contains(t, task.ErrorMessage, "task not found")
}
