package infrastructure

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2"
	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/internal/domain"
)

const maxArtworkBytes = 10 << 20

// ID3Tagger writes catalog metadata into MP3 files after acquisition and
// reads the TLEN frame back as a duration source
type ID3Tagger struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewID3Tagger creates a tagger. Artwork is fetched with a 30 second timeout.
func NewID3Tagger(logger *zap.Logger) *ID3Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ID3Tagger{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Process overwrites title, artist and album with the resolved values and
// embeds cover art when the file has none. Non-MP3 output is left alone.
func (t *ID3Tagger) Process(ctx context.Context, artifact domain.Artifact, track domain.ResolvedTrack, cfg domain.AudioConfig) error {
	if cfg.Codec != domain.CodecMP3 || !cfg.EmbedMetadata {
		return nil
	}
	if !strings.EqualFold(filepath.Ext(artifact.FilePath), ".mp3") {
		return nil
	}

	tag, err := id3v2.Open(artifact.FilePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open tags: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if track.Title != "" {
		tag.SetTitle(track.Title)
	}
	if track.Artist != "" {
		tag.SetArtist(track.Artist)
	}
	if track.Album != "" {
		tag.SetAlbum(track.Album)
	}
	if track.DurationSeconds > 0 {
		tag.DeleteFrames(tag.CommonID("Length"))
		tag.AddTextFrame(tag.CommonID("Length"), id3v2.EncodingUTF8, strconv.Itoa(track.DurationSeconds*1000))
	}

	pictureID := tag.CommonID("Attached picture")
	if cfg.EmbedArtwork && track.ThumbnailURL != "" && len(tag.GetFrames(pictureID)) == 0 {
		artwork, mimeType, err := t.fetchArtwork(ctx, track.ThumbnailURL)
		if err != nil {
			t.logger.Warn("Failed to fetch artwork",
				zap.String("url", track.ThumbnailURL),
				zap.Error(err))
		} else {
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    mimeType,
				PictureType: id3v2.PTFrontCover,
				Description: "Cover",
				Picture:     artwork,
			})
		}
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}

// Duration reads the TLEN frame of an MP3 file
func (t *ID3Tagger) Duration(ctx context.Context, path string) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return 0, fmt.Errorf("not an mp3 file")
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return 0, err
	}
	defer tag.Close()

	frame := tag.GetTextFrame(tag.CommonID("Length"))
	ms, err := strconv.Atoi(strings.TrimSpace(frame.Text))
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("no length frame")
	}
	return (ms + 500) / 1000, nil
}

func (t *ID3Tagger) fetchArtwork(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("artwork request returned %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtworkBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxArtworkBytes {
		return nil, "", fmt.Errorf("artwork larger than %d bytes", maxArtworkBytes)
	}

	mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("artwork is %s, not an image", mimeType)
	}
	return data, mimeType, nil
}
