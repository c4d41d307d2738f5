package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"transcribe-gateway/internal/domain"
	"transcribe-gateway/internal/infra/audio"
	"transcribe-gateway/internal/infra/metrics"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio domain.UploadedAudio) (domain.TranscriptionResult, error)
}

type HealthChecker interface {
	Snapshot() domain.HealthSnapshot
}

type Deps struct {
	Receiver    *audio.Receiver
	Relay       Transcriber
	Health      HealthChecker
	Metrics     *metrics.Metrics
	RateLimiter *audio.RateLimiter
	APIPrefix   string
	CORSOrigin  string
	Logger      *slog.Logger

	// TrustedProxies lists the addresses whose X-Forwarded-For is honored
	// when resolving the client IP. Empty trusts none.
	TrustedProxies []string
}

// NewRouter wires the gin engine. Metrics is optional; without it the
// /metrics route and HTTP instrumentation are not mounted.
func NewRouter(d Deps) http.Handler {
	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		d.Logger.Warn("ignoring invalid trusted proxies", "proxies", d.TrustedProxies, "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(
		requestID(),
		recovery(d.Logger),
		requestLogger(d.Logger),
		cors(d.CORSOrigin),
	)
	if d.Metrics != nil {
		r.Use(recordMetrics(d.Metrics))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := &API{
		receiver: d.Receiver,
		relay:    d.Relay,
		health:   d.Health,
		metrics:  d.Metrics,
		logger:   d.Logger,
	}

	transcribe := []gin.HandlerFunc{api.transcribe}
	if d.RateLimiter != nil && d.RateLimiter.Enabled() {
		transcribe = append([]gin.HandlerFunc{d.RateLimiter.Middleware()}, transcribe...)
	}

	v1 := r.Group(d.APIPrefix)
	{
		v1.GET("/health", api.getHealth)
		v1.POST("/transcribe", transcribe...)
	}

	return r
}
