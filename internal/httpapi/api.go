package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"transcribe-gateway/internal/domain"
	"transcribe-gateway/internal/infra/audio"
	"transcribe-gateway/internal/infra/metrics"
)

// isoMillis matches the timestamp layout browsers produce with toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

type API struct {
	receiver *audio.Receiver
	relay    Transcriber
	health   HealthChecker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func (api *API) getHealth(c *gin.Context) {
	snap := api.health.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"ok":    snap.OK,
		"store": snap.Store,
		"ts":    snap.CheckedAt.Format(isoMillis),
	})
}

func (api *API) transcribe(c *gin.Context) {
	upload, err := api.receiver.Receive(c.Writer, c.Request)
	if err != nil {
		if api.metrics != nil {
			api.metrics.RecordRejectedUpload(rejectReason(err))
		}
		api.handleError(c, err)
		return
	}
	if api.metrics != nil {
		api.metrics.RecordUpload(upload.Size())
	}

	api.logger.Debug("received audio",
		"bytes", upload.Size(),
		"content_type", upload.ContentType,
		"filename", upload.Filename,
		"request_id", c.GetString(requestIDKey),
	)

	result, err := api.relay.Transcribe(c.Request.Context(), upload)
	if err != nil {
		api.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transcription": result.Text})
}

func (api *API) handleError(c *gin.Context, err error) {
	var upErr *domain.UpstreamError
	var invErr *domain.InvalidResponseError

	switch {
	case errors.Is(err, domain.ErrMissingInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
	case errors.Is(err, domain.ErrMalformedUpload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed multipart upload"})
	case errors.Is(err, domain.ErrUploadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
	case errors.Is(err, domain.ErrNotConfigured):
		api.logger.Warn("transcription requested but provider is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transcription provider not configured"})
	case errors.As(err, &invErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Invalid response from transcription provider",
			"details": invErr.Detail.Payload,
		})
	case errors.As(err, &upErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Transcription failed",
			"details": upErr.Detail.Payload,
		})
	default:
		api.logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingInput):
		return "missing_input"
	case errors.Is(err, domain.ErrUploadTooLarge):
		return "too_large"
	default:
		return "malformed"
	}
}
