package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/songdl-go/internal/domain"
)

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func writeFakeMP3(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0644))
	return path
}

func TestID3Tagger_WritesMetadataAndArtwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(fakeJPEG)
	}))
	defer server.Close()

	path := writeFakeMP3(t)
	track := domain.ResolvedTrack{
		Title:           "Bohemian Rhapsody",
		Artist:          "Queen",
		Album:           "A Night At The Opera",
		DurationSeconds: 354,
		ThumbnailURL:    server.URL + "/cover.jpg",
	}
	tagger := NewID3Tagger(nil)

	err := tagger.Process(context.Background(), domain.Artifact{FilePath: path}, track, domain.DefaultAudioConfig())
	require.NoError(t, err)

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()
	assert.Equal(t, "Bohemian Rhapsody", tag.Title())
	assert.Equal(t, "Queen", tag.Artist())
	assert.Equal(t, "A Night At The Opera", tag.Album())

	pictures := tag.GetFrames(tag.CommonID("Attached picture"))
	require.Len(t, pictures, 1)
	pic, ok := pictures[0].(id3v2.PictureFrame)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", pic.MimeType)
	assert.Equal(t, fakeJPEG, pic.Picture)

	seconds, err := tagger.Duration(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 354, seconds)
}

func TestID3Tagger_ArtworkFailureIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	path := writeFakeMP3(t)
	track := domain.ResolvedTrack{Title: "Song", ThumbnailURL: server.URL}

	err := NewID3Tagger(nil).Process(context.Background(), domain.Artifact{FilePath: path}, track, domain.DefaultAudioConfig())
	require.NoError(t, err)

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()
	assert.Equal(t, "Song", tag.Title())
	assert.Empty(t, tag.GetFrames(tag.CommonID("Attached picture")))
}

func TestID3Tagger_SkipsOpusAndDisabled(t *testing.T) {
	path := writeFakeMP3(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	tagger := NewID3Tagger(nil)
	track := domain.ResolvedTrack{Title: "Song"}

	opus := domain.AudioConfig{Codec: domain.CodecOpus, BitrateKbps: 160, EmbedMetadata: true}
	require.NoError(t, tagger.Process(context.Background(), domain.Artifact{FilePath: path}, track, opus))

	disabled := domain.DefaultAudioConfig()
	disabled.EmbedMetadata = false
	require.NoError(t, tagger.Process(context.Background(), domain.Artifact{FilePath: path}, track, disabled))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestID3Tagger_DurationWithoutFrame(t *testing.T) {
	_, err := NewID3Tagger(nil).Duration(context.Background(), writeFakeMP3(t))
	assert.Error(t, err)

	_, err = NewID3Tagger(nil).Duration(context.Background(), "song.opus")
	assert.Error(t, err)
}

func TestParseFFprobeDuration(t *testing.T) {
	seconds, err := ParseFFprobeDuration([]byte(`{"format":{"filename":"a.mp3","duration":"215.484082","bit_rate":"320000"}}`))
	require.NoError(t, err)
	assert.Equal(t, 215, seconds)

	_, err = ParseFFprobeDuration([]byte(`{"format":{}}`))
	assert.Error(t, err)

	_, err = ParseFFprobeDuration([]byte(`not json`))
	assert.Error(t, err)
}

func TestMP3Decoder_RejectsNonMP3(t *testing.T) {
	_, err := NewMP3Decoder().Duration(context.Background(), filepath.Join(t.TempDir(), "song.opus"))
	assert.Error(t, err)
}

func TestMP3Decoder_GarbageFails(t *testing.T) {
	_, err := NewMP3Decoder().Duration(context.Background(), writeFakeMP3(t))
	assert.Error(t, err)
}

func TestMP3Decoder_MissingFile(t *testing.T) {
	_, err := NewMP3Decoder().Duration(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
