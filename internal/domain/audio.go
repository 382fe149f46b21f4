package domain

import (
	"fmt"
	"slices"
)

// Codec is the target audio codec
type Codec string

const (
	CodecMP3  Codec = "mp3"
	CodecOpus Codec = "opus"
)

var validBitrates = map[Codec][]int{
	CodecMP3:  {128, 192, 256, 320},
	CodecOpus: {64, 96, 128, 160, 192},
}

// ManagedExtensions lists every extension the library treats as an artifact
var ManagedExtensions = []string{"mp3", "opus", "ogg"}

// AudioConfig describes the requested output encoding
type AudioConfig struct {
	Codec         Codec `mapstructure:"codec" json:"codec"`
	BitrateKbps   int   `mapstructure:"bitrate_kbps" json:"bitrate_kbps"`
	ForceStereo   bool  `mapstructure:"force_stereo" json:"force_stereo"`
	EmbedArtwork  bool  `mapstructure:"embed_artwork" json:"embed_artwork"`
	EmbedMetadata bool  `mapstructure:"embed_metadata" json:"embed_metadata"`
}

// DefaultAudioConfig is 320 kbps CBR mp3 with tags and artwork
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		Codec:         CodecMP3,
		BitrateKbps:   320,
		ForceStereo:   true,
		EmbedArtwork:  true,
		EmbedMetadata: true,
	}
}

// Validate checks codec and bitrate against the enumerated sets
func (c AudioConfig) Validate() error {
	rates, ok := validBitrates[c.Codec]
	if !ok {
		return fmt.Errorf("%w: codec %q, choose mp3 or opus", ErrInvalidAudioConfig, c.Codec)
	}
	if !slices.Contains(rates, c.BitrateKbps) {
		return fmt.Errorf("%w: %d kbps is not valid for %s, choose one of %v", ErrInvalidAudioConfig, c.BitrateKbps, c.Codec, rates)
	}
	return nil
}

// Extensions returns the output extensions to look for, in priority order.
// Opus output is sometimes materialized in an Ogg container.
func (c AudioConfig) Extensions() []string {
	if c.Codec == CodecOpus {
		return []string{"opus", "ogg"}
	}
	return []string{string(c.Codec)}
}

// TranscoderArgs returns the ffmpeg arguments applied during audio
// extraction: constant bitrate without joint stereo for MP3, VBR for Opus.
func (c AudioConfig) TranscoderArgs() []string {
	rate := fmt.Sprintf("%dk", c.BitrateKbps)
	if c.Codec == CodecOpus {
		return []string{"-b:a", rate, "-vbr", "on"}
	}
	args := []string{"-b:a", rate}
	if c.ForceStereo {
		args = append(args, "-joint_stereo", "0")
	}
	return args
}
