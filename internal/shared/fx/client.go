package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKey = "pephaul:fx:usd_php"

// Client fetches the USD→PHP exchange rate. The rate is advisory pricing
// input, so every failure path falls back to the configured rate instead of
// erroring: an order must never be blocked because a rate API is down.
type Client struct {
	endpoint     string
	fallbackRate float64
	cacheTTL     time.Duration
	rdb          *redis.Client
	httpClient   *http.Client
	logger       *zap.Logger
}

func NewClient(endpoint string, fallbackRate float64, cacheTTL time.Duration, rdb *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		endpoint:     endpoint,
		fallbackRate: fallbackRate,
		cacheTTL:     cacheTTL,
		rdb:          rdb,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// USDToPHP returns the current rate. Resolution order: shared redis cache,
// live API, configured fallback.
func (c *Client) USDToPHP(ctx context.Context) float64 {
	if c.rdb != nil {
		if raw, err := c.rdb.Get(ctx, cacheKey).Result(); err == nil {
			if rate, err := strconv.ParseFloat(raw, 64); err == nil && rate > 0 {
				return rate
			}
		}
	}

	rate, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("exchange rate fetch failed, using fallback",
			zap.Float64("fallback", c.fallbackRate), zap.Error(err))
		return c.fallbackRate
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, cacheKey, strconv.FormatFloat(rate, 'f', -1, 64), c.cacheTTL).Err(); err != nil {
			c.logger.Warn("exchange rate cache write failed", zap.Error(err))
		}
	}
	return rate
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate API returned %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}

	rate, ok := result.Rates["PHP"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("rate response has no PHP rate")
	}
	return rate, nil
}
