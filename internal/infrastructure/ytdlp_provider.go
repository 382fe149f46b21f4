package infrastructure

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yourusername/songdl-go/internal/app"
	"github.com/yourusername/songdl-go/internal/domain"
	"github.com/yourusername/songdl-go/pkg/logger"
)

const progressPrefix = "[songdl]"

// outputTemplate caps the title at 200 bytes so long titles stay under
// filesystem name limits
const outputTemplate = "%(title).200B.%(ext)s"

// progressTemplate makes yt-dlp print one machine readable line per update
var progressTemplate = "download:" + progressPrefix +
	" %(progress.status)s %(progress.downloaded_bytes)s %(progress.total_bytes)s %(progress.total_bytes_estimate)s"

// YTDLPProvider downloads the best audio stream with yt-dlp and transcodes
// it with ffmpeg
type YTDLPProvider struct {
	config *domain.ProvidersConfig
	runner *processRunner
}

// NewYTDLPProvider creates a general media acquisition provider
func NewYTDLPProvider(config *domain.ProvidersConfig, eventLogger *logger.MultiLogger) *YTDLPProvider {
	return &YTDLPProvider{
		config: config,
		runner: &processRunner{binary: config.YTDLPBinary, eventLogger: eventLogger},
	}
}

// Name returns the provider name
func (p *YTDLPProvider) Name() string {
	return "yt-dlp"
}

// Kind reports that yt-dlp handles general media
func (p *YTDLPProvider) Kind() domain.ProviderKind {
	return domain.KindGeneral
}

// Acquire downloads track into dir and returns the produced file
func (p *YTDLPProvider) Acquire(ctx context.Context, track domain.ResolvedTrack, dir string, cfg domain.AudioConfig, sink domain.ProgressSink) (domain.Artifact, error) {
	target := p.Target(track)
	args := BuildAcquireArgs(target, dir, cfg, p.config.ConcurrentFragments)

	err := p.runner.run(ctx, "yt-dlp "+track.Title, args, func(line string) {
		if ev, ok := ParseProgressLine(line); ok {
			if ev.Converting {
				sink.OnPhaseChange(domain.StatusConverting)
			} else {
				sink.OnProgress(ev.Downloaded, ev.Total)
			}
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

// Target returns what yt-dlp is asked to download. Catalog links and
// tracks without a link are searched by artist and title.
func (p *YTDLPProvider) Target(track domain.ResolvedTrack) string {
	u := strings.TrimSpace(track.SourceURL)
	isURL := strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
	if !isURL || app.IsCatalogURL(u, p.config.CatalogHosts) {
		return "ytsearch1:" + track.SearchTerm()
	}
	return u
}

// BuildAcquireArgs returns the yt-dlp arguments for one audio download
func BuildAcquireArgs(target, dir string, cfg domain.AudioConfig, fragments int) []string {
	if fragments <= 0 {
		fragments = 1
	}

	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", string(cfg.Codec),
		"--audio-quality", fmt.Sprintf("%dK", cfg.BitrateKbps),
		"--postprocessor-args", "ExtractAudio:" + strings.Join(cfg.TranscoderArgs(), " "),
		"--restrict-filenames",
		"--windows-filenames",
		"--no-playlist",
		"--ignore-config",
		"--concurrent-fragments", strconv.Itoa(fragments),
		"--newline",
		"--progress-template", progressTemplate,
		"-o", filepath.Join(dir, outputTemplate),
	}
	if cfg.EmbedMetadata {
		args = append(args, "--embed-metadata")
	}
	if cfg.EmbedArtwork {
		args = append(args, "--embed-thumbnail")
	}
	return append(args, "--", target)
}

// ProgressEvent is one parsed yt-dlp progress line
type ProgressEvent struct {
	Downloaded int64
	Total      int64
	Converting bool
}

// ParseProgressLine recognizes template progress lines and the start of
// audio extraction. Unknown byte counts are reported as zero.
func ParseProgressLine(line string) (ProgressEvent, bool) {
	line = strings.TrimSpace(line)

	if strings.HasPrefix(line, "[ExtractAudio]") {
		return ProgressEvent{Converting: true}, true
	}
	if !strings.HasPrefix(line, progressPrefix) {
		return ProgressEvent{}, false
	}

	fields := strings.Fields(strings.TrimPrefix(line, progressPrefix))
	if len(fields) == 0 {
		return ProgressEvent{}, false
	}

	switch fields[0] {
	case "finished":
		return ProgressEvent{Converting: true}, true
	case "downloading":
	default:
		return ProgressEvent{}, false
	}

	ev := ProgressEvent{}
	if len(fields) > 1 {
		ev.Downloaded = parseBytes(fields[1])
	}
	if len(fields) > 2 {
		ev.Total = parseBytes(fields[2])
	}
	if ev.Total <= 0 && len(fields) > 3 {
		ev.Total = parseBytes(fields[3])
	}
	return ev, true
}

// parseBytes accepts yt-dlp's integer, float or NA renderings
func parseBytes(s string) int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
