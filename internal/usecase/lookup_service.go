package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/allergenscan/backend/internal/infrastructure/openfoodfacts"
)

const (
	defaultLookupTimeout = 15 * time.Second
	defaultCacheTTL      = 24 * time.Hour

	sourceOpenFoodFacts = "OpenFoodFacts"
	sourceCache         = "Cache"
)

// LookupServiceConfig holds configuration for the product lookup service
type LookupServiceConfig struct {
	CacheTTL time.Duration
	Timeout  time.Duration
}

// LookupService resolves barcodes to product records with caching
type LookupService struct {
	cache    domain.CacheRepository
	client   domain.ProductClient
	cacheTTL time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewLookupService creates a new lookup service with dependencies
func NewLookupService(
	cache domain.CacheRepository,
	client domain.ProductClient,
	config LookupServiceConfig,
	logger *slog.Logger,
) *LookupService {
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}

	return &LookupService{
		cache:    cache,
		client:   client,
		cacheTTL: cacheTTL,
		timeout:  timeout,
		logger:   logger,
	}
}

// Lookup finds the product for a barcode.
// Flow: validate -> check cache -> query Open Food Facts -> normalize -> cache -> return
func (s *LookupService) Lookup(ctx context.Context, barcode string) (*domain.LookupResult, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, domain.NewValidationError("barcode", "barcode is required")
	}

	cacheKey := generateCacheKey(barcode)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		return &domain.LookupResult{Product: cached, Source: sourceCache}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	product, err := s.client.GetProduct(runCtx, barcode)
	if err != nil {
		return nil, s.classifyLookupError(ctx, runCtx, barcode, err)
	}

	record, warning := openfoodfacts.MapToProductRecord(barcode, product)
	result := &domain.LookupResult{
		Product: record,
		Warning: warning,
		Source:  sourceOpenFoodFacts,
	}

	s.logger.Info("Product lookup completed",
		"barcode", barcode,
		"product", record.ProductName,
		"has_ingredients", record.HasIngredients(),
		"duration", time.Since(start))

	// Partial records are not cached so ingredients added upstream later are picked up
	if !result.IsPartial() {
		if err := s.cache.Set(ctx, cacheKey, record, s.cacheTTL); err != nil {
			s.logger.Warn("Failed to cache product", "barcode", barcode, "error", err)
		}
	}

	return result, nil
}

// classifyLookupError maps an expired lookup deadline to a gateway timeout.
// Caller cancellation is passed through unchanged.
func (s *LookupService) classifyLookupError(ctx, runCtx context.Context, barcode string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("Product lookup timed out", "barcode", barcode, "timeout", s.timeout)
		return &domain.UpstreamError{
			StatusCode: http.StatusGatewayTimeout,
			Err:        fmt.Errorf("lookup timed out after %s", s.timeout),
		}
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		s.logger.Warn("Product lookup failed", "barcode", barcode, "error", err)
	}
	return err
}

// generateCacheKey creates the cache key for a barcode.
// Format: "product:{barcode}"
func generateCacheKey(barcode string) string {
	return "product:" + barcode
}

// getFromCache retrieves a product record from cache
func (s *LookupService) getFromCache(ctx context.Context, key string) (*domain.ProductRecord, error) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var record domain.ProductRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn("Dropping undecodable cache entry", "key", key, "error", err)
		_ = s.cache.Delete(ctx, key)
		return nil, domain.ErrCacheMiss
	}
	if !record.HasIngredients() {
		return nil, domain.ErrCacheMiss
	}

	return &record, nil
}
