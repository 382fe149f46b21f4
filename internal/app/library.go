package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/songdl-go/internal/domain"
)

const probeConcurrency = 4

// LibraryEntry describes one audio file in the output directory
type LibraryEntry struct {
	Filename        string    `json:"filename"`
	Title           string    `json:"title"`
	SizeBytes       int64     `json:"size"`
	SizeHuman       string    `json:"size_human"`
	DurationSeconds int       `json:"duration"`
	Modified        time.Time `json:"modified"`
}

// Library manages the downloaded files in the output directory
type Library struct {
	dir     string
	audio   domain.AudioConfig
	probers []domain.DurationProber
	logger  *zap.Logger
}

// NewLibrary creates a library over config.OutputDir. Probers are asked for
// durations in order; the first positive answer wins.
func NewLibrary(config *domain.DownloadConfig, probers []domain.DurationProber, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		dir:     config.OutputDir,
		audio:   config.Audio,
		probers: probers,
		logger:  logger,
	}
}

// Dir returns the output directory
func (l *Library) Dir() string {
	return l.dir
}

// List returns the managed audio files, newest first. A missing output
// directory is an empty library.
func (l *Library) List(ctx context.Context) ([]LibraryEntry, error) {
	dirEntries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []LibraryEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read library: %w", err)
	}

	entries := make([]LibraryEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !isManaged(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, LibraryEntry{
			Filename:  de.Name(),
			Title:     strings.TrimSuffix(de.Name(), filepath.Ext(de.Name())),
			SizeBytes: info.Size(),
			SizeHuman: domain.HumanSize(info.Size()),
			Modified:  info.ModTime(),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i := range entries {
		entry := &entries[i]
		g.Go(func() error {
			entry.DurationSeconds = l.duration(gctx, filepath.Join(l.dir, entry.Filename), entry.SizeBytes)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Modified.After(entries[j].Modified)
	})
	return entries, nil
}

// Path validates name and returns the absolute path of an existing file
func (l *Library) Path(name string) (string, error) {
	path, err := l.resolve(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
	}
	return path, nil
}

// Remove deletes a file from the library. Invalid names are rejected before
// the filesystem is touched.
func (l *Library) Remove(name string) error {
	path, err := l.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
		}
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}

	l.logger.Info("Deleted library file", zap.String("file", name))
	return nil
}

// resolve maps a bare filename to a path inside the library
func (l *Library) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidArtifactName, name)
	}
	if !isManaged(name) {
		return "", fmt.Errorf("%w: %q is not an audio file", domain.ErrInvalidArtifactName, name)
	}

	root, err := filepath.Abs(l.dir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, name)
	if rel, err := filepath.Rel(root, path); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidArtifactName, name)
	}
	return path, nil
}

func (l *Library) duration(ctx context.Context, path string, size int64) int {
	for _, p := range l.probers {
		seconds, err := p.Duration(ctx, path)
		if err == nil && seconds > 0 {
			return seconds
		}
		if err != nil {
			l.logger.Debug("Duration probe failed", zap.String("file", path), zap.Error(err))
		}
	}
	return EstimateDuration(size, l.audio.BitrateKbps)
}

// EstimateDuration derives seconds from file size at a constant bitrate
func EstimateDuration(sizeBytes int64, bitrateKbps int) int {
	if bitrateKbps <= 0 || sizeBytes <= 0 {
		return 0
	}
	return int(sizeBytes / (int64(bitrateKbps) * 1000 / 8))
}

func isManaged(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return slices.Contains(domain.ManagedExtensions, ext)
}
