package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"transcribe-gateway/internal/domain"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultModel   = "scribe_v1"

	// UploadFilename replaces whatever name the client sent.
	UploadFilename = "audio.webm"

	transcriptionPath = "/v1/speech-to-text"
	apiKeyHeader      = "xi-api-key"
)

type STTClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewSTTClient(apiKey, model string, timeout time.Duration, baseURL string) *STTClient {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &STTClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
	}
}

type transcriptionResponse struct {
	Text *string `json:"text"`
}

// Transcribe makes exactly one call to the provider. Failures come back as
// *domain.UpstreamError or *domain.InvalidResponseError.
func (c *STTClient) Transcribe(ctx context.Context, audio domain.UploadedAudio) (domain.TranscriptionResult, error) {
	body, contentType, err := c.encode(audio)
	if err != nil {
		return domain.TranscriptionResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcriptionPath, body)
	if err != nil {
		return domain.TranscriptionResult{}, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TranscriptionResult{}, &domain.UpstreamError{
			Detail: domain.NewProviderErrorDetail(0, []byte(err.Error())),
			Cause:  fmt.Errorf("sending request: %w", err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TranscriptionResult{}, &domain.UpstreamError{
			Detail: domain.NewProviderErrorDetail(resp.StatusCode, []byte(err.Error())),
			Cause:  fmt.Errorf("reading response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.TranscriptionResult{}, &domain.UpstreamError{
			Detail: domain.NewProviderErrorDetail(resp.StatusCode, respBody),
		}
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		reason := "body is not JSON"
		if json.Valid(respBody) {
			reason = fmt.Sprintf("unexpected body shape: %v", err)
		}
		return domain.TranscriptionResult{}, &domain.InvalidResponseError{
			Detail: domain.NewProviderErrorDetail(resp.StatusCode, respBody),
			Reason: reason,
		}
	}
	if result.Text == nil {
		return domain.TranscriptionResult{}, &domain.InvalidResponseError{
			Detail: domain.NewProviderErrorDetail(resp.StatusCode, respBody),
			Reason: "missing text field",
		}
	}

	return domain.TranscriptionResult{Text: *result.Text}, nil
}

// encode builds the two-part form: the audio under "file" and the pinned model.
func (c *STTClient) encode(audio domain.UploadedAudio) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	body.Grow(audio.Size() + 512)
	writer := multipart.NewWriter(body)

	contentType := audio.ContentType
	if contentType == "" {
		contentType = domain.DefaultContentType
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, UploadFilename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}

	if _, err = part.Write(audio.Data); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}

	if err = writer.WriteField("model_id", c.model); err != nil {
		return nil, "", fmt.Errorf("writing model field: %w", err)
	}

	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
