package application

import (
	"context"

	"transcribe-gateway/internal/domain"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, audio domain.UploadedAudio) (domain.TranscriptionResult, error)
}

// NoopSTT stands in for the provider when no API key is configured.
// It never touches the network.
type NoopSTT struct{}

func (n NoopSTT) Transcribe(_ context.Context, _ domain.UploadedAudio) (domain.TranscriptionResult, error) {
	return domain.TranscriptionResult{}, domain.ErrNotConfigured
}
