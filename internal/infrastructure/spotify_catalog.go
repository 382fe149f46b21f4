package infrastructure

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/yourusername/songdl-go/internal/domain"
)

// SpotifyCatalog implements domain.CatalogProvider with the Spotify Web API.
// It uses an app-only client credentials token, so no user login is needed.
type SpotifyCatalog struct {
	client *spotify.Client
	market string
	logger *zap.Logger
}

// NewSpotifyCatalog creates a catalog client. The token is fetched lazily on
// the first search.
func NewSpotifyCatalog(config *domain.SpotifyConfig, logger *zap.Logger) *SpotifyCatalog {
	return newSpotifyCatalog(config, spotifyauth.TokenURL, "", logger)
}

func newSpotifyCatalog(config *domain.SpotifyConfig, tokenURL, baseURL string, logger *zap.Logger) *SpotifyCatalog {
	creds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     tokenURL,
	}
	httpClient := creds.Client(context.Background())

	var opts []spotify.ClientOption
	if baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(baseURL))
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpotifyCatalog{
		client: spotify.New(httpClient, opts...),
		market: config.Market,
		logger: logger,
	}
}

// Name returns the provider name recorded on resolved tracks
func (c *SpotifyCatalog) Name() string {
	return "spotify"
}

// SearchStructured returns the best catalog match, or nil when the catalog
// has no track for query
func (c *SpotifyCatalog) SearchStructured(ctx context.Context, query string) (*domain.ResolvedTrack, error) {
	opts := []spotify.RequestOption{spotify.Limit(1)}
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	result, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, opts...)
	if err != nil {
		return nil, fmt.Errorf("spotify search failed: %w", err)
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, nil
	}

	track := TrackFromSpotify(result.Tracks.Tracks[0])
	c.logger.Debug("Spotify match",
		zap.String("query", query),
		zap.String("id", track.ID),
		zap.String("title", track.Title))
	return &track, nil
}

// TrackFromSpotify maps a catalog track to a resolved track
func TrackFromSpotify(t spotify.FullTrack) domain.ResolvedTrack {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	url := t.ExternalURLs["spotify"]
	if url == "" {
		url = "https://open.spotify.com/track/" + string(t.ID)
	}

	var thumbnail string
	if len(t.Album.Images) > 0 {
		thumbnail = t.Album.Images[0].URL
	}

	return domain.ResolvedTrack{
		ID:              string(t.ID),
		Title:           t.Name,
		Artist:          strings.Join(artists, ", "),
		Album:           t.Album.Name,
		SourceURL:       url,
		DurationSeconds: int(math.Round(float64(t.Duration) / 1000)),
		ThumbnailURL:    thumbnail,
		ProviderName:    "spotify",
	}
}
