package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
)

// FFprobe reads container durations with ffprobe
type FFprobe struct {
	binary string
}

// NewFFprobe creates a duration prober. An empty binary means "ffprobe".
func NewFFprobe(binary string) *FFprobe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobe{binary: binary}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

// Duration returns the playback length of path in whole seconds
func (f *FFprobe) Duration(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, f.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return ParseFFprobeDuration(output)
}

// ParseFFprobeDuration extracts the format duration from ffprobe JSON
func ParseFFprobeDuration(output []byte) (int, error) {
	var data ffprobeOutput
	if err := json.Unmarshal(output, &data); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	seconds, err := strconv.ParseFloat(data.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	return int(math.Round(seconds)), nil
}
