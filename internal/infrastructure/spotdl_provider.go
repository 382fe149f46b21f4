package infrastructure

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/songdl-go/internal/app"
	"github.com/yourusername/songdl-go/internal/domain"
	"github.com/yourusername/songdl-go/pkg/logger"
)

var spotdlProgressRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// SpotDLProvider acquires catalog links with spotdl, which matches the
// catalog entry to an audio source itself
type SpotDLProvider struct {
	config *domain.ProvidersConfig
	runner *processRunner
}

// NewSpotDLProvider creates a catalog-native acquisition provider
func NewSpotDLProvider(config *domain.ProvidersConfig, eventLogger *logger.MultiLogger) *SpotDLProvider {
	return &SpotDLProvider{
		config: config,
		runner: &processRunner{binary: config.SpotDLBinary, eventLogger: eventLogger},
	}
}

// Name returns the provider name
func (p *SpotDLProvider) Name() string {
	return "spotdl"
}

// Kind reports that spotdl only handles catalog links
func (p *SpotDLProvider) Kind() domain.ProviderKind {
	return domain.KindCatalog
}

// Acquire downloads a catalog track into dir
func (p *SpotDLProvider) Acquire(ctx context.Context, track domain.ResolvedTrack, dir string, cfg domain.AudioConfig, sink domain.ProgressSink) (domain.Artifact, error) {
	if !app.IsCatalogURL(track.SourceURL, p.config.CatalogHosts) {
		return domain.Artifact{}, fmt.Errorf("spotdl only accepts catalog links, got %q", track.SourceURL)
	}

	args := BuildSpotDLArgs(track.SourceURL, dir, cfg)
	err := p.runner.run(ctx, "spotdl "+track.Title, args, func(line string) {
		if isSpotDLConverting(line) {
			sink.OnPhaseChange(domain.StatusConverting)
			return
		}
		if pct, ok := parseSpotDLProgress(line); ok {
			sink.OnProgress(int64(pct), 100)
		}
	})
	if err != nil {
		return domain.Artifact{}, err
	}

	artifact, err := app.Locate(dir, cfg.Extensions())
	if err != nil {
		return domain.Artifact{}, err
	}
	artifact.Codec = cfg.Codec
	artifact.BitrateKbps = cfg.BitrateKbps
	return artifact, nil
}

// BuildSpotDLArgs returns the spotdl arguments for one track
func BuildSpotDLArgs(url, dir string, cfg domain.AudioConfig) []string {
	return []string{
		"download", url,
		"--output", filepath.Join(dir, "{artists} - {title}.{output-ext}"),
		"--format", string(cfg.Codec),
		"--bitrate", fmt.Sprintf("%dk", cfg.BitrateKbps),
		"--ffmpeg-args", strings.Join(cfg.TranscoderArgs(), " "),
		"--simple-tui",
	}
}

func isSpotDLConverting(line string) bool {
	return strings.Contains(line, "Converting") || strings.HasPrefix(strings.TrimSpace(line), "Downloaded")
}

// parseSpotDLProgress extracts a percentage from a progress line
func parseSpotDLProgress(line string) (float64, bool) {
	matches := spotdlProgressRegex.FindStringSubmatch(line)
	if len(matches) < 2 {
		return 0, false
	}
	pct, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}
