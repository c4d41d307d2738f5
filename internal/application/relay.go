package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"transcribe-gateway/internal/domain"
)

type RelayMetrics interface {
	RecordProviderRequest()
	RecordProviderSuccess(durationSeconds float64)
	RecordProviderFailure(kind string, durationSeconds float64)
}

type Relay struct {
	stt     SpeechToText
	metrics RelayMetrics
	logger  *slog.Logger
}

func NewRelay(stt SpeechToText, metrics RelayMetrics, logger *slog.Logger) *Relay {
	if stt == nil {
		stt = NoopSTT{}
	}
	return &Relay{
		stt:     stt,
		metrics: metrics,
		logger:  logger,
	}
}

// Transcribe forwards one upload to the provider. Every call is a fresh,
// single attempt.
func (r *Relay) Transcribe(ctx context.Context, audio domain.UploadedAudio) (domain.TranscriptionResult, error) {
	if audio.Size() == 0 {
		return domain.TranscriptionResult{}, domain.ErrMissingInput
	}

	start := time.Now()
	result, err := r.stt.Transcribe(ctx, audio)
	elapsed := time.Since(start)

	if errors.Is(err, domain.ErrNotConfigured) {
		return domain.TranscriptionResult{}, err
	}

	if r.metrics != nil {
		r.metrics.RecordProviderRequest()
	}

	if err != nil {
		kind := failureKind(err)
		if r.metrics != nil {
			r.metrics.RecordProviderFailure(kind, elapsed.Seconds())
		}
		r.logger.Error("transcription failed",
			"kind", kind,
			"bytes", audio.Size(),
			"content_type", audio.ContentType,
			"duration", elapsed,
			"error", err,
		)
		return domain.TranscriptionResult{}, fmt.Errorf("transcribing: %w", err)
	}

	if r.metrics != nil {
		r.metrics.RecordProviderSuccess(elapsed.Seconds())
	}
	r.logger.Info("transcribed",
		"bytes", audio.Size(),
		"content_type", audio.ContentType,
		"chars", len(result.Text),
		"duration", elapsed,
	)

	return result, nil
}

func failureKind(err error) string {
	var upErr *domain.UpstreamError
	var invErr *domain.InvalidResponseError
	switch {
	case errors.As(err, &invErr):
		return "invalid_response"
	case errors.As(err, &upErr) && upErr.Detail.StatusCode == 0:
		return "transport"
	case errors.As(err, &upErr):
		return "upstream"
	default:
		return "internal"
	}
}
