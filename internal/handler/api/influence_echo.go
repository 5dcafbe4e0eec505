package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"FinInfluence/internal/domain/models"
	domrepo "FinInfluence/internal/domain/repository"
	"FinInfluence/internal/usecase"
	xhttp "FinInfluence/pkg/http"
	xlogger "FinInfluence/pkg/logger"
)

// maxBodyBytes caps a snapshot request body.
const maxBodyBytes = 1 << 20

// Analyzer is the slice of the analysis pipeline the HTTP layer needs.
type Analyzer interface {
	Analyze(ctx context.Context, snaps models.SnapshotSet) (*models.AnalysisResult, error)
	CacheSize() int
	ClearCache(ctx context.Context) error
}

// BreakerState reports the circuit breaker guarding the market data upstream.
type BreakerState interface {
	State() string
}

// InfluenceEchoHandler serves the influence graph endpoints.
type InfluenceEchoHandler struct {
	logger   *xlogger.Logger
	analyzer Analyzer
	upstream BreakerState
	now      func() time.Time
}

// NewInfluenceEchoHandler builds the handler. upstream may be nil when no
// market data service is configured.
func NewInfluenceEchoHandler(logger *xlogger.Logger, analyzer Analyzer, upstream BreakerState) *InfluenceEchoHandler {
	return &InfluenceEchoHandler{logger: logger, analyzer: analyzer, upstream: upstream, now: time.Now}
}

func (h *InfluenceEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/granger-causality", h.Analyze)
	g.POST("/influence-graph", h.Analyze)
	g.GET("/health", h.Health)
	g.DELETE("/cache", h.ClearCache)
}

func (h *InfluenceEchoHandler) Analyze(c echo.Context) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxBodyBytes))
	if err != nil {
		return xhttp.BadRequestResponse(c, "request body too large or unreadable")
	}

	ctx := domrepo.ContextWithRequestID(c.Request().Context(), c.Response().Header().Get(echo.HeaderXRequestID))
	snaps, err := usecase.ParseSnapshots(ctx, body)
	if err != nil {
		return xhttp.AppErrorResponse(c, err, "InputError")
	}

	res, err := h.analyzer.Analyze(ctx, snaps)
	if err != nil {
		h.logger.Error("influence analysis error",
			xlogger.String("error_type", models.KindOf(err)),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err, "InputError")
	}
	return xhttp.SuccessResponse(c, res.Response())
}

type healthResponse struct {
	Status       string  `json:"status"`
	Timestamp    float64 `json:"timestamp"`
	CacheSize    int     `json:"cache_size"`
	BreakerState string  `json:"breaker_state,omitempty"`
}

func (h *InfluenceEchoHandler) Health(c echo.Context) error {
	res := healthResponse{
		Status:    "healthy",
		Timestamp: models.UnixSeconds(h.now()),
		CacheSize: h.analyzer.CacheSize(),
	}
	if h.upstream != nil {
		res.BreakerState = h.upstream.State()
	}
	return xhttp.SuccessResponse(c, res)
}

type clearResponse struct {
	Status    string `json:"status"`
	CacheSize int    `json:"cache_size"`
}

// ClearCache drops every cached analysis in both cache tiers.
func (h *InfluenceEchoHandler) ClearCache(c echo.Context) error {
	if err := h.analyzer.ClearCache(c.Request().Context()); err != nil {
		h.logger.Error("cache clear error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.logger.Info("result cache cleared")
	return xhttp.SuccessResponse(c, clearResponse{Status: "cleared", CacheSize: h.analyzer.CacheSize()})
}

var _ xhttp.Handler = (*InfluenceEchoHandler)(nil)
