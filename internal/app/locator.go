package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/songdl-go/internal/domain"
)

// Locate finds the audio file a provider produced in dir. Extensions are
// tried in priority order and the most recently modified match wins.
func Locate(dir string, extensions []string) (domain.Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Artifact{}, fmt.Errorf("%w: %s does not exist", domain.ErrArtifactNotFound, dir)
		}
		return domain.Artifact{}, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, ext := range extensions {
		suffix := "." + strings.TrimPrefix(strings.ToLower(ext), ".")

		var (
			newest     string
			newestTime time.Time
			newestSize int64
		)
		for _, entry := range entries {
			if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != suffix {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if newest == "" || info.ModTime().After(newestTime) {
				newest = entry.Name()
				newestTime = info.ModTime()
				newestSize = info.Size()
			}
		}

		if newest != "" {
			return domain.Artifact{
				FilePath:  filepath.Join(dir, newest),
				SizeBytes: newestSize,
			}, nil
		}
	}

	return domain.Artifact{}, fmt.Errorf("%w: no %s file in %s",
		domain.ErrArtifactNotFound, strings.Join(extensions, "/"), dir)
}

// promoteMu serializes the name check and rename of concurrent pipelines
var promoteMu sync.Mutex

// Promote moves an artifact into dir, appending " (n)" to the stem when the
// name is already taken
func Promote(artifact domain.Artifact, dir string) (domain.Artifact, error) {
	promoteMu.Lock()
	defer promoteMu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return domain.Artifact{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	name := artifact.Filename()
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	target := filepath.Join(dir, name)
	for n := 1; ; n++ {
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
	}

	if err := os.Rename(artifact.FilePath, target); err != nil {
		return domain.Artifact{}, fmt.Errorf("failed to move %s into library: %w", name, err)
	}

	promoted := artifact
	promoted.FilePath = target
	if info, err := os.Stat(target); err == nil {
		promoted.SizeBytes = info.Size()
	}
	return promoted, nil
}
