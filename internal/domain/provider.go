package domain

import "context"

// ProviderKind distinguishes catalog-native acquisition from general media download
type ProviderKind string

const (
	KindCatalog ProviderKind = "catalog"
	KindGeneral ProviderKind = "general"
)

// SearchProvider performs a general media search
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// CatalogProvider returns already disambiguated metadata. A nil track with a
// nil error means the catalog had no match.
type CatalogProvider interface {
	Name() string
	SearchStructured(ctx context.Context, query string) (*ResolvedTrack, error)
}

// ProgressSink receives transfer events from an acquisition provider. It may
// be called from the provider's own goroutines.
//
// A downloading phase change announces a new acquisition attempt; the
// receiver restarts the task's transfer progress.
type ProgressSink interface {
	OnProgress(downloadedBytes, totalBytes int64)
	OnPhaseChange(phase TaskStatus)
}

// AcquisitionProvider fetches and transcodes audio for a resolved track,
// writing exactly one audio file into outputDir
type AcquisitionProvider interface {
	Name() string
	Kind() ProviderKind
	Acquire(ctx context.Context, track ResolvedTrack, outputDir string, cfg AudioConfig, sink ProgressSink) (Artifact, error)
}

// PostProcessor runs after a successful acquisition, before the artifact is
// promoted into the library
type PostProcessor interface {
	Process(ctx context.Context, artifact Artifact, track ResolvedTrack, cfg AudioConfig) error
}

// DurationProber reads the playback length of a file in seconds
type DurationProber interface {
	Duration(ctx context.Context, path string) (int, error)
}

// NopSink discards progress events
type NopSink struct{}

func (NopSink) OnProgress(int64, int64)   {}
func (NopSink) OnPhaseChange(TaskStatus) {}
