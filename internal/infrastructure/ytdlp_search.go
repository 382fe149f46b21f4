package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/yourusername/songdl-go/internal/domain"
	"github.com/yourusername/songdl-go/pkg/logger"
)

// YTDLPSearch implements domain.SearchProvider with yt-dlp's ytsearch
// extractor. Only flat metadata is fetched, nothing is downloaded.
type YTDLPSearch struct {
	runner *processRunner
}

// NewYTDLPSearch creates a search provider
func NewYTDLPSearch(config *domain.ProvidersConfig, eventLogger *logger.MultiLogger) *YTDLPSearch {
	return &YTDLPSearch{
		runner: &processRunner{binary: config.YTDLPBinary, eventLogger: eventLogger},
	}
}

// Name returns the provider name recorded on resolved tracks
func (s *YTDLPSearch) Name() string {
	return "youtube"
}

// Search returns up to limit results for query in result order
func (s *YTDLPSearch) Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = 1
	}

	var lines []string
	err := s.runner.run(ctx, "search", BuildSearchArgs(query, limit), func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return nil, err
	}
	return ParseSearchResults(lines), nil
}

// BuildSearchArgs returns the yt-dlp arguments for a flat search
func BuildSearchArgs(query string, limit int) []string {
	return []string{
		"--flat-playlist",
		"--dump-json",
		"--no-warnings",
		"--ignore-config",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	}
}

type searchEntry struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Uploader   string   `json:"uploader"`
	Channel    string   `json:"channel"`
	Duration   *float64 `json:"duration"`
	URL        string   `json:"url"`
	WebpageURL string   `json:"webpage_url"`
	Thumbnail  string   `json:"thumbnail"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

// ParseSearchResults decodes line-delimited yt-dlp JSON. Lines that are not
// JSON objects and entries without an id are skipped.
func ParseSearchResults(lines []string) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var e searchEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil || e.ID == "" {
			continue
		}

		c := domain.Candidate{
			Title:         e.Title,
			UploaderName:  e.Uploader,
			RawIdentifier: e.ID,
			SourceURL:     e.WebpageURL,
			ThumbnailURL:  e.Thumbnail,
		}
		if c.UploaderName == "" {
			c.UploaderName = e.Channel
		}
		if c.SourceURL == "" {
			c.SourceURL = e.URL
		}
		if c.SourceURL == "" {
			c.SourceURL = "https://www.youtube.com/watch?v=" + e.ID
		}
		if c.ThumbnailURL == "" && len(e.Thumbnails) > 0 {
			c.ThumbnailURL = e.Thumbnails[len(e.Thumbnails)-1].URL
		}
		if e.Duration != nil {
			c.DurationSeconds = int(math.Round(*e.Duration))
		}
		candidates = append(candidates, c)
	}
	return candidates
}
