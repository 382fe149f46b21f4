package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/api/handlers"
	"github.com/yourusername/songdl-go/internal/app"
	"github.com/yourusername/songdl-go/internal/domain"
	"github.com/yourusername/songdl-go/internal/infrastructure"
	"github.com/yourusername/songdl-go/pkg/logger"
)

var version = "dev"

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:           "songdl",
		Short:         "songdl - download any song as audio by name",
		Long:          `Resolve a free-text song query to a single track and download it as mp3 or opus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./configs/config.yaml, $HOME/.songdl/config.yaml)")
	rootCmd.Version = version
	handlers.Version = version

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(rmCmd)
}

// application holds the wired components shared by every command
type application struct {
	config       *domain.Config
	log          *zap.Logger
	multiLog     *logger.MultiLogger
	resolver     *app.Resolver
	registry     *app.Registry
	orchestrator *app.Orchestrator
	library      *app.Library
}

// newApplication loads configuration, lets the command adjust it, and wires
// providers, resolver, chain, orchestrator and library
func newApplication(adjust func(*domain.Config)) (*application, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if adjust != nil {
		adjust(config)
		if err := config.Download.Audio.Validate(); err != nil {
			return nil, err
		}
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event logs: %w", err)
	}

	var catalog domain.CatalogProvider
	if config.Spotify.Enabled() {
		catalog = infrastructure.NewSpotifyCatalog(&config.Spotify, log)
	} else {
		log.Debug("Spotify credentials not set, catalog search disabled")
	}

	search := infrastructure.NewYTDLPSearch(&config.Providers, multiLog)
	resolver := app.NewResolver(catalog, search,
		app.NewRanker(config.Download.MaxDurationSeconds), &config.Search, log)

	var providers []domain.AcquisitionProvider
	if !config.Providers.DisableSpotDL {
		providers = append(providers, infrastructure.NewSpotDLProvider(&config.Providers, multiLog))
	}
	providers = append(providers, infrastructure.NewYTDLPProvider(&config.Providers, multiLog))
	chain := app.NewChain(providers, config.Providers.CatalogHosts, config.Providers.AcquireTimeout, log)

	tagger := infrastructure.NewID3Tagger(log)
	ffprobe := infrastructure.NewFFprobe(config.Providers.FFprobeBinary)
	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	registry := app.NewRegistry(multiLog)
	orchestrator := app.NewOrchestrator(resolver, chain, registry,
		[]domain.PostProcessor{tagger}, notifier, &config.Download, log)
	library := app.NewLibrary(&config.Download,
		[]domain.DurationProber{ffprobe, tagger, infrastructure.NewMP3Decoder()}, log)

	return &application{
		config:       config,
		log:          log,
		multiLog:     multiLog,
		resolver:     resolver,
		registry:     registry,
		orchestrator: orchestrator,
		library:      library,
	}, nil
}

// Close flushes loggers
func (a *application) Close() {
	_ = a.log.Sync()
	if err := a.multiLog.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close logs: %v\n", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
