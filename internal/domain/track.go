package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Candidate is a raw search result before ranking
type Candidate struct {
	Title           string `json:"title"`
	UploaderName    string `json:"uploader"`
	DurationSeconds int    `json:"duration"`
	RawIdentifier   string `json:"id"`
	SourceURL       string `json:"url"`
	ThumbnailURL    string `json:"thumbnail,omitempty"`
}

// ResolvedTrack is the single track chosen for acquisition
type ResolvedTrack struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Album           string `json:"album,omitempty"`
	SourceURL       string `json:"url"`
	DurationSeconds int    `json:"duration"`
	ThumbnailURL    string `json:"thumbnail,omitempty"`
	ProviderName    string `json:"provider"`
}

// TrackFromCandidate promotes a ranked candidate to a resolved track
func TrackFromCandidate(c Candidate, provider string) ResolvedTrack {
	return ResolvedTrack{
		ID:              c.RawIdentifier,
		Title:           c.Title,
		Artist:          c.UploaderName,
		SourceURL:       c.SourceURL,
		DurationSeconds: c.DurationSeconds,
		ThumbnailURL:    c.ThumbnailURL,
		ProviderName:    provider,
	}
}

// SearchTerm is the text handed to a media search when the source URL
// itself cannot be downloaded
func (t ResolvedTrack) SearchTerm() string {
	if t.Artist == "" || strings.Contains(strings.ToLower(t.Title), strings.ToLower(t.Artist)) {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// Artifact is a produced audio file on disk
type Artifact struct {
	FilePath    string `json:"file_path"`
	SizeBytes   int64  `json:"size"`
	Codec       Codec  `json:"codec"`
	BitrateKbps int    `json:"bitrate_kbps"`
}

// Filename returns the base name of the artifact file
func (a Artifact) Filename() string {
	return filepath.Base(a.FilePath)
}

// HumanSize formats a byte count as a short human-readable string
func HumanSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}
