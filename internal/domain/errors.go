package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingInput    = errors.New("no file uploaded")
	ErrMalformedUpload = errors.New("malformed multipart upload")
	ErrUploadTooLarge  = errors.New("upload exceeds size limit")
	ErrNotConfigured   = errors.New("transcription provider not configured")
)

// ProviderErrorDetail is whatever diagnostic payload the provider returned.
// Payload holds the body verbatim when it is valid JSON, otherwise a JSON
// string with the body or the transport error message.
type ProviderErrorDetail struct {
	StatusCode int
	Payload    json.RawMessage
}

// NewProviderErrorDetail keeps JSON bodies as-is and quotes anything else.
func NewProviderErrorDetail(statusCode int, body []byte) ProviderErrorDetail {
	if len(body) > 0 && json.Valid(body) {
		return ProviderErrorDetail{StatusCode: statusCode, Payload: json.RawMessage(body)}
	}
	quoted, _ := json.Marshal(string(body))
	return ProviderErrorDetail{StatusCode: statusCode, Payload: quoted}
}

// UpstreamError is returned when the provider answered with a non-2xx status
// or the call failed before any response arrived (StatusCode 0).
type UpstreamError struct {
	Detail ProviderErrorDetail
	Cause  error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider request failed: %v", e.Cause)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Detail.StatusCode, string(e.Detail.Payload))
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// InvalidResponseError is returned for a 2xx reply whose body is not the
// expected {"text": ...} shape.
type InvalidResponseError struct {
	Detail ProviderErrorDetail
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid provider response: %s", e.Reason)
}
