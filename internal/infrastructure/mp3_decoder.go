package infrastructure

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/mp3"
)

// MP3Decoder measures mp3 durations by decoding the frame stream. It is the
// slow path for files without usable container or tag metadata.
type MP3Decoder struct{}

// NewMP3Decoder creates a decoding duration prober
func NewMP3Decoder() *MP3Decoder {
	return &MP3Decoder{}
}

// Duration returns the decoded length of an mp3 file in whole seconds
func (d *MP3Decoder) Duration(ctx context.Context, path string) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return 0, fmt.Errorf("not an mp3 file")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to decode mp3: %w", err)
	}
	defer streamer.Close()

	length := format.SampleRate.D(streamer.Len())
	if length <= 0 {
		return 0, fmt.Errorf("empty mp3 stream")
	}
	return int(math.Round(length.Seconds())), nil
}
