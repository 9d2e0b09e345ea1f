package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allergenscan/backend/config"
	"github.com/allergenscan/backend/internal/domain"
	"github.com/allergenscan/backend/internal/infrastructure/anthropic"
	"github.com/allergenscan/backend/internal/infrastructure/cache"
	"github.com/allergenscan/backend/internal/infrastructure/openfoodfacts"
	"github.com/allergenscan/backend/internal/infrastructure/storage"
	"github.com/allergenscan/backend/internal/usecase"
)

// app holds the wired services shared by every command
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	lookup      *usecase.LookupService
	profile     *usecase.ProfileStore
	highlighter *usecase.Highlighter
	tool        *usecase.IngredientTool

	// nil when the app was built without a reasoning backend
	analysis *usecase.AnalysisService
	scan     *usecase.ScanService

	closers []func()
}

// newApp wires infrastructure and usecases. withLLM controls whether the
// reasoning backend is built, which requires an API key.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, withLLM bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var productCache domain.CacheRepository = cache.NoopCache{}
	if cfg.Cache.Type == "memory" {
		memoryCache := cache.NewMemoryCache()
		a.closers = append(a.closers, memoryCache.Close)
		productCache = memoryCache
	}

	offClient := openfoodfacts.NewClient(openfoodfacts.ClientConfig{
		BaseURL:           cfg.OpenFoodFacts.BaseURL,
		UserAgent:         cfg.OpenFoodFacts.UserAgent,
		Timeout:           cfg.OpenFoodFacts.Timeout,
		RequestsPerMinute: cfg.OpenFoodFacts.RequestsPerMinute,
	}, logger)

	a.lookup = usecase.NewLookupService(productCache, offClient, usecase.LookupServiceConfig{
		CacheTTL: cfg.Cache.TTL,
		Timeout:  cfg.OpenFoodFacts.Timeout,
	}, logger)

	backend, err := a.profileBackend()
	if err != nil {
		a.close()
		return nil, err
	}
	a.profile = usecase.NewProfileStore(ctx, backend, logger)
	a.highlighter = usecase.NewHighlighter(cfg.Highlight.Mode)
	a.tool = usecase.NewIngredientTool()

	if !withLLM {
		return a, nil
	}

	reasoner, err := anthropic.NewClient(anthropic.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create reasoning client: %w", err)
	}

	a.analysis = usecase.NewAnalysisService(reasoner, a.tool, usecase.AnalysisServiceConfig{
		Timeout:       cfg.LLM.Timeout,
		MaxToolRounds: cfg.LLM.MaxToolRounds,
	}, logger)
	a.scan = usecase.NewScanService(a.lookup, a.analysis, a.profile, a.highlighter, logger)

	return a, nil
}

func (a *app) profileBackend() (domain.ProfileBackend, error) {
	if a.cfg.Profile.Backend == "memory" {
		a.logger.Warn("Profile backend is in-memory, changes will not survive a restart")
		return storage.NewMemoryBackend(nil), nil
	}

	backend, err := storage.NewSQLiteBackend(a.cfg.Profile.Path)
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := backend.Close(); err != nil {
			a.logger.Warn("Failed to close profile store", "error", err)
		}
	})
	a.logger.Debug("Profile store opened", "path", a.cfg.Profile.Path)

	return backend, nil
}

// close releases resources in reverse order of acquisition
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
