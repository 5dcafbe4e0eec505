package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"FinInfluence/internal/domain/models"
	"FinInfluence/internal/domain/repository"
	xhttp "FinInfluence/pkg/http"
	"FinInfluence/pkg/logger"
	"FinInfluence/pkg/util"
)

// Config for the market data history endpoint.
type Config struct {
	BaseURL      string
	Path         string
	Timeframe    string
	Interval     string
	Timeout      time.Duration
	MinCloses    int
	RPS          float64
	Burst        int
	BreakerTrips uint32
	BreakerOpen  time.Duration
}

type bar struct {
	Close *float64 `json:"close"`
}

type historyResponse struct {
	Success bool   `json:"success"`
	Data    []bar  `json:"data"`
	Message string `json:"message,omitempty"`
}

// Client fetches daily closes from the market data service. Calls are paced
// by a token bucket and guarded by a circuit breaker so a failing upstream
// costs one fast error per symbol instead of a timeout.
type Client struct {
	cfg     Config
	url     string
	http    *xhttp.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

var _ repository.HistoryProvider = (*Client)(nil)

func NewClient(cfg Config, log *logger.Logger, opts ...xhttp.ClientOption) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MinCloses < 1 {
		cfg.MinCloses = 30
	}
	if cfg.BreakerTrips == 0 {
		cfg.BreakerTrips = 5
	}
	cfg.Timeframe = string(repository.NormalizeTimeframe(cfg.Timeframe))
	cfg.Interval = string(repository.NormalizeInterval(cfg.Interval))

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		url:     cfg.BaseURL + cfg.Path,
		http:    xhttp.NewClient(append([]xhttp.ClientOption{xhttp.WithTimeout(cfg.Timeout)}, opts...)...),
		limiter: rate.NewLimiter(limit, burst),
		logger:  log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "marketdata",
		Timeout: cfg.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerTrips
		},
		IsSuccessful: func(err error) bool {
			// An unknown symbol or a caller giving up says nothing about upstream health.
			return err == nil || errors.Is(err, models.ErrNoHistory) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) Source() models.DataSource { return models.SourceProvider }

// FetchCloses returns the symbol's closes oldest first. Anything short of
// MinCloses valid points is reported as models.ErrNoHistory.
func (c *Client) FetchCloses(ctx context.Context, symbol string) ([]float64, error) {
	if c.cfg.BaseURL == "" {
		return nil, fmt.Errorf("market data base url not configured: %w", models.ErrNoHistory)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("market data %s: %w", symbol, err)
	}
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

func (c *Client) fetch(ctx context.Context, symbol string) ([]float64, error) {
	var resp historyResponse
	err := c.http.GetJSON(ctx, c.url, map[string][]string{
		"symbol":    {util.NormalizeSymbol(symbol)},
		"timeframe": {c.cfg.Timeframe},
		"interval":  {c.cfg.Interval},
	}, &resp)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("market data %s: %w", symbol, models.ErrNoHistory)
		}
		return nil, fmt.Errorf("market data %s: %w", symbol, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("market data %s: %s: %w", symbol, resp.Message, models.ErrNoHistory)
	}

	closes := make([]float64, 0, len(resp.Data))
	for _, b := range resp.Data {
		if b.Close == nil || *b.Close <= 0 || math.IsNaN(*b.Close) || math.IsInf(*b.Close, 0) {
			continue
		}
		closes = append(closes, *b.Close)
	}
	if len(closes) < c.cfg.MinCloses {
		return nil, fmt.Errorf("market data %s: %d closes: %w", symbol, len(closes), models.ErrNoHistory)
	}

	c.logger.Debug("market data history fetched",
		logger.String("symbol", symbol),
		logger.Int("points", len(closes)))
	return closes, nil
}

// State reports the breaker state for health output.
func (c *Client) State() string { return c.breaker.State().String() }
