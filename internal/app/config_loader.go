package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yourusername/songdl-go/internal/domain"
)

// LoadConfig loads configuration from file and environment. A .env file in
// the working directory is loaded into the environment first.
func LoadConfig(configPath string) (*domain.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.songdl")
		v.AddConfigPath("/etc/songdl")
	}

	v.SetEnvPrefix("SONGDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, domain.DefaultConfig())

	// Conventional names used by other Spotify tooling
	_ = v.BindEnv("spotify.client_id", "SONGDL_SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_ID")
	_ = v.BindEnv("spotify.client_secret", "SONGDL_SPOTIFY_CLIENT_SECRET", "SPOTIFY_CLIENT_SECRET")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Every key has a registered default, so decode into a zero value; a
	// prefilled struct would merge list settings element by element.
	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so environment variables can override
// settings that are absent from the config file
func setDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)

	v.SetDefault("download.output_dir", c.Download.OutputDir)
	v.SetDefault("download.max_duration_seconds", c.Download.MaxDurationSeconds)
	v.SetDefault("download.audio.codec", string(c.Download.Audio.Codec))
	v.SetDefault("download.audio.bitrate_kbps", c.Download.Audio.BitrateKbps)
	v.SetDefault("download.audio.force_stereo", c.Download.Audio.ForceStereo)
	v.SetDefault("download.audio.embed_artwork", c.Download.Audio.EmbedArtwork)
	v.SetDefault("download.audio.embed_metadata", c.Download.Audio.EmbedMetadata)

	v.SetDefault("search.result_count", c.Search.ResultCount)
	v.SetDefault("search.query_suffix", c.Search.QuerySuffix)
	v.SetDefault("search.suggestion_limit", c.Search.SuggestionLimit)
	v.SetDefault("search.metadata_timeout", c.Search.MetadataTimeout)

	v.SetDefault("providers.ytdlp_binary", c.Providers.YTDLPBinary)
	v.SetDefault("providers.spotdl_binary", c.Providers.SpotDLBinary)
	v.SetDefault("providers.ffprobe_binary", c.Providers.FFprobeBinary)
	v.SetDefault("providers.acquire_timeout", c.Providers.AcquireTimeout)
	v.SetDefault("providers.catalog_hosts", c.Providers.CatalogHosts)
	v.SetDefault("providers.concurrent_fragments", c.Providers.ConcurrentFragments)
	v.SetDefault("providers.disable_spotdl", c.Providers.DisableSpotDL)

	v.SetDefault("spotify.client_id", c.Spotify.ClientID)
	v.SetDefault("spotify.client_secret", c.Spotify.ClientSecret)
	v.SetDefault("spotify.market", c.Spotify.Market)

	v.SetDefault("notification.enabled", c.Notification.Enabled)
	v.SetDefault("notification.method", c.Notification.Method)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.output_path", c.Logging.OutputPath)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.OutputDir = ExpandPath(config.Download.OutputDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = ExpandPath(config.Logging.OutputPath)
	}

	return config
}

// ExpandPath expands environment variables and ~ in paths
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.OutputDir == "" {
		return fmt.Errorf("download output directory not configured")
	}

	if err := config.Download.Audio.Validate(); err != nil {
		return err
	}

	if config.Download.MaxDurationSeconds < 0 {
		return fmt.Errorf("max duration cannot be negative")
	}

	if config.Search.ResultCount < 1 {
		return fmt.Errorf("search result count must be at least 1")
	}

	if config.Search.SuggestionLimit < 1 {
		config.Search.SuggestionLimit = 5
	}

	if config.Providers.YTDLPBinary == "" {
		return fmt.Errorf("yt-dlp binary not configured")
	}

	if config.Providers.AcquireTimeout <= 0 {
		return fmt.Errorf("acquire timeout must be positive")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, config)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
