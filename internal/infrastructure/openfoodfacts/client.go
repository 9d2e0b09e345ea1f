package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/allergenscan/backend/internal/domain"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// productFields limits the product API response to what the mapper reads
var productFields = []string{
	"code",
	"product_name", "product_name_en",
	"ingredients_text", "ingredients_text_en",
	"generic_name", "generic_name_en",
	"image_url", "image_front_url",
	"brands",
}

const (
	defaultRequestsPerMinute = 100
	defaultMaxAttempts       = 3
	defaultRetryBackoff      = 500 * time.Millisecond
	maxErrorBodyBytes        = 512
)

// ClientConfig holds Open Food Facts client settings
type ClientConfig struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
	RetryBackoff      time.Duration
}

// Client handles communication with the Open Food Facts product API
type Client struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	rateLimiter  *rate.Limiter
	maxAttempts  int
	retryBackoff time.Duration
	logger       *slog.Logger
}

// NewClient creates a new Open Food Facts API client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}
	// rate.Limit is requests per second
	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 10) // burst of 10 requests

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:    cfg.UserAgent,
		rateLimiter:  limiter,
		maxAttempts:  attempts,
		retryBackoff: backoff,
		logger:       logger,
	}
}

// GetProduct fetches a product by barcode.
// Returns domain.ErrProductNotFound when the database has no such product and
// *domain.UpstreamError when the service is unreachable or erroring.
func (c *Client) GetProduct(ctx context.Context, barcode string) (*domain.OFFProduct, error) {
	params := url.Values{}
	params.Set("fields", strings.Join(productFields, ","))
	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json?%s", c.baseURL, url.PathEscape(barcode), params.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, &domain.UpstreamError{Err: errors.Wrap(err, "rate limiter")}
		}

		product, retry, err := c.fetchProduct(ctx, reqURL)
		if err == nil {
			return product, nil
		}
		if !retry || ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
		c.logger.Warn("Open Food Facts request failed",
			"barcode", barcode,
			"attempt", attempt,
			"error", err)

		if attempt < c.maxAttempts {
			if err := sleepContext(ctx, c.exponentialBackoff(attempt)); err != nil {
				return nil, &domain.UpstreamError{Err: err}
			}
		}
	}

	c.logger.Error("All Open Food Facts attempts failed", "barcode", barcode, "error", lastErr)
	return nil, lastErr
}

// fetchProduct performs one request. retry reports whether the failure is transient.
func (c *Client) fetchProduct(ctx context.Context, reqURL string) (product *domain.OFFProduct, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, &domain.UpstreamError{Err: errors.Wrap(err, "failed to create request")}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, &domain.UpstreamError{Err: errors.Wrap(err, "request failed")}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &domain.UpstreamError{StatusCode: resp.StatusCode, Err: errors.Wrap(err, "reading response")}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, domain.ErrProductNotFound
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &domain.UpstreamError{StatusCode: resp.StatusCode, Err: errors.Errorf("unexpected response: %s", truncate(body))}
	case resp.StatusCode != http.StatusOK:
		return nil, false, &domain.UpstreamError{StatusCode: resp.StatusCode, Err: errors.Errorf("unexpected response: %s", truncate(body))}
	}

	var productResp domain.OFFProductResponse
	if err := json.Unmarshal(body, &productResp); err != nil {
		return nil, false, &domain.UpstreamError{StatusCode: resp.StatusCode, Err: errors.Wrap(err, "failed to decode response")}
	}

	if productResp.Status == 0 || productResp.Product == nil {
		return nil, false, domain.ErrProductNotFound
	}

	return productResp.Product, false, nil
}

// exponentialBackoff returns the wait before the next attempt: base, 2x base, 4x base...
func (c *Client) exponentialBackoff(attempt int) time.Duration {
	return c.retryBackoff * time.Duration(1<<(attempt-1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		return string(body[:maxErrorBodyBytes]) + "..."
	}
	return string(body)
}
