package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Search       SearchConfig       `mapstructure:"search"`
	Providers    ProvidersConfig    `mapstructure:"providers"`
	Spotify      SpotifyConfig      `mapstructure:"spotify"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains output and encoding configuration
type DownloadConfig struct {
	OutputDir          string      `mapstructure:"output_dir"`
	Audio              AudioConfig `mapstructure:"audio"`
	MaxDurationSeconds int         `mapstructure:"max_duration_seconds"`
}

// StagingDir is where tasks acquire files before promotion
func (c DownloadConfig) StagingDir() string {
	return filepath.Join(c.OutputDir, ".staging")
}

// LogsDir holds the categorized event logs and raw process output
func (c DownloadConfig) LogsDir() string {
	return filepath.Join(c.OutputDir, ".logs")
}

// SearchConfig contains query resolution configuration
type SearchConfig struct {
	ResultCount     int           `mapstructure:"result_count"`
	QuerySuffix     string        `mapstructure:"query_suffix"`
	SuggestionLimit int           `mapstructure:"suggestion_limit"`
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout"`
}

// ProvidersConfig contains external tool configuration
type ProvidersConfig struct {
	YTDLPBinary         string        `mapstructure:"ytdlp_binary"`
	SpotDLBinary        string        `mapstructure:"spotdl_binary"`
	FFprobeBinary       string        `mapstructure:"ffprobe_binary"`
	AcquireTimeout      time.Duration `mapstructure:"acquire_timeout"`
	CatalogHosts        []string      `mapstructure:"catalog_hosts"`
	ConcurrentFragments int           `mapstructure:"concurrent_fragments"`
	DisableSpotDL       bool          `mapstructure:"disable_spotdl"`
}

// SpotifyConfig contains catalog credentials. The catalog is skipped when
// either credential is empty.
type SpotifyConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Market       string `mapstructure:"market"`
}

// Enabled reports whether catalog search can be used
func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Download: DownloadConfig{
			OutputDir:          "$HOME/Music/songdl",
			Audio:              DefaultAudioConfig(),
			MaxDurationSeconds: 900,
		},
		Search: SearchConfig{
			ResultCount:     10,
			QuerySuffix:     "song",
			SuggestionLimit: 5,
			MetadataTimeout: 30 * time.Second,
		},
		Providers: ProvidersConfig{
			YTDLPBinary:         "yt-dlp",
			SpotDLBinary:        "spotdl",
			FFprobeBinary:       "ffprobe",
			AcquireTimeout:      120 * time.Second,
			CatalogHosts:        []string{"open.spotify.com", "spotify.com"},
			ConcurrentFragments: 8,
		},
		Spotify: SpotifyConfig{
			Market: "US",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
