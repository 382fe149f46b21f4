package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yourusername/songdl-go/internal/domain"
)

// Chain tries acquisition providers in order until one produces a file
type Chain struct {
	providers    []domain.AcquisitionProvider
	catalogHosts []string
	timeout      time.Duration
	logger       *zap.Logger
}

// NewChain creates a chain. Catalog providers are only used for tracks whose
// source URL points at one of catalogHosts.
func NewChain(
	providers []domain.AcquisitionProvider,
	catalogHosts []string,
	timeout time.Duration,
	logger *zap.Logger,
) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		providers:    providers,
		catalogHosts: catalogHosts,
		timeout:      timeout,
		logger:       logger,
	}
}

// Select returns the providers that apply to a track, catalog-native first
func (c *Chain) Select(track domain.ResolvedTrack) []domain.AcquisitionProvider {
	catalogURL := IsCatalogURL(track.SourceURL, c.catalogHosts)

	var catalog, general []domain.AcquisitionProvider
	for _, p := range c.providers {
		switch p.Kind() {
		case domain.KindCatalog:
			if catalogURL {
				catalog = append(catalog, p)
			}
		default:
			general = append(general, p)
		}
	}
	return append(catalog, general...)
}

// Acquire runs the applicable providers in order. Each attempt gets its own
// directory under stagingDir so a failed attempt cannot be mistaken for the
// output of the next one.
func (c *Chain) Acquire(
	ctx context.Context,
	track domain.ResolvedTrack,
	stagingDir string,
	cfg domain.AudioConfig,
	sink domain.ProgressSink,
) (domain.Artifact, error) {
	if sink == nil {
		sink = domain.NopSink{}
	}

	providers := c.Select(track)
	if len(providers) == 0 {
		return domain.Artifact{}, &domain.AcquisitionError{
			Err: fmt.Errorf("no provider can acquire %q", track.SourceURL),
		}
	}

	var errs error
	for i, p := range providers {
		dir := filepath.Join(stagingDir, fmt.Sprintf("%d-%s", i+1, p.Name()))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return domain.Artifact{}, fmt.Errorf("failed to create staging directory: %w", err)
		}

		if i > 0 {
			sink.OnPhaseChange(domain.StatusDownloading)
		}

		c.logger.Info("Acquiring track",
			zap.String("provider", p.Name()),
			zap.String("title", track.Title),
			zap.String("url", track.SourceURL))

		artifact, err := c.attempt(ctx, p, track, dir, cfg, sink)
		if err == nil {
			if artifact.Codec == "" {
				artifact.Codec = cfg.Codec
			}
			if artifact.BitrateKbps == 0 {
				artifact.BitrateKbps = cfg.BitrateKbps
			}
			return artifact, nil
		}

		c.logger.Warn("Provider failed",
			zap.String("provider", p.Name()),
			zap.Int("attempt", i+1),
			zap.Int("of", len(providers)),
			zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	return domain.Artifact{}, &domain.AcquisitionError{Err: errs}
}

func (c *Chain) attempt(
	ctx context.Context,
	p domain.AcquisitionProvider,
	track domain.ResolvedTrack,
	dir string,
	cfg domain.AudioConfig,
	sink domain.ProgressSink,
) (artifact domain.Artifact, err error) {
	actx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			artifact = domain.Artifact{}
			err = fmt.Errorf("provider panicked: %v", r)
		}
		if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			err = &domain.ProviderTimeoutError{Provider: p.Name(), Timeout: c.timeout}
		}
	}()

	return p.Acquire(actx, track, dir, cfg, sink)
}

// IsCatalogURL reports whether raw points at one of hosts or a subdomain of it
func IsCatalogURL(raw string, hosts []string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
