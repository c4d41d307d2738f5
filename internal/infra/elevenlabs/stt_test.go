package elevenlabs_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"transcribe-gateway/internal/domain"
	"transcribe-gateway/internal/infra/elevenlabs"
)

func testAudio() domain.UploadedAudio {
	return domain.UploadedAudio{
		Data:        []byte("RIFF....WAVEfmt fake audio"),
		ContentType: "audio/wav",
		Filename:    "recording.wav",
	}
}

func TestSTTClient_Transcribe_BuildsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/speech-to-text" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("api key header: got %q, want test-key", got)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
			return
		}

		if got := r.MultipartForm.Value["model_id"]; len(got) != 1 || got[0] != "scribe_v1" {
			t.Errorf("model_id: got %v, want [scribe_v1]", got)
		}
		if n := len(r.MultipartForm.Value) + len(r.MultipartForm.File); n != 2 {
			t.Errorf("parts: got %d, want 2", n)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("reading file part: %v", err)
			return
		}
		defer file.Close()

		if header.Filename != elevenlabs.UploadFilename {
			t.Errorf("filename: got %s, want %s", header.Filename, elevenlabs.UploadFilename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("part content type: got %s, want audio/wav", ct)
		}
		data, _ := io.ReadAll(file)
		if string(data) != string(testAudio().Data) {
			t.Errorf("audio mismatch: got %d bytes", len(data))
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"language_code":"en","text":"hello"}`)
	}))
	defer server.Close()

	client := elevenlabs.NewSTTClient("test-key", "", time.Second, server.URL)

	result, err := client.Transcribe(context.Background(), testAudio())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello" {
		t.Errorf("text: got %q, want hello", result.Text)
	}
}

func TestSTTClient_Transcribe_DefaultContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("reading file part: %v", err)
			return
		}
		if ct := header.Header.Get("Content-Type"); ct != domain.DefaultContentType {
			t.Errorf("part content type: got %s, want %s", ct, domain.DefaultContentType)
		}
		io.WriteString(w, `{"text":""}`)
	}))
	defer server.Close()

	client := elevenlabs.NewSTTClient("k", "scribe_v1", time.Second, server.URL)
	audio := testAudio()
	audio.ContentType = ""

	result, err := client.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "" {
		t.Errorf("text: got %q, want empty", result.Text)
	}
}

func TestSTTClient_Transcribe_ResponseMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantUp      bool
		wantInvalid bool
		wantPayload string
		wantReason  string
	}{
		{
			name:        "provider error json passes through",
			status:      http.StatusBadRequest,
			body:        `{"detail":"bad audio"}`,
			wantUp:      true,
			wantPayload: `{"detail":"bad audio"}`,
		},
		{
			name:        "provider error plain text",
			status:      http.StatusBadGateway,
			body:        "gateway down",
			wantUp:      true,
			wantPayload: `"gateway down"`,
		},
		{
			name:        "success without text",
			status:      http.StatusOK,
			body:        `{"language_code":"en"}`,
			wantInvalid: true,
			wantPayload: `{"language_code":"en"}`,
			wantReason:  "missing text field",
		},
		{
			name:        "success with non json body",
			status:      http.StatusOK,
			body:        "hello",
			wantInvalid: true,
			wantPayload: `"hello"`,
			wantReason:  "body is not JSON",
		},
		{
			name:        "success with mistyped text",
			status:      http.StatusOK,
			body:        `{"text": 5}`,
			wantInvalid: true,
			wantPayload: `{"text": 5}`,
			wantReason:  "unexpected body shape",
		},
		{
			name:        "success with json array",
			status:      http.StatusOK,
			body:        `[]`,
			wantInvalid: true,
			wantPayload: `[]`,
			wantReason:  "unexpected body shape",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := elevenlabs.NewSTTClient("k", "", time.Second, server.URL)
			_, err := client.Transcribe(context.Background(), testAudio())
			if err == nil {
				t.Fatal("expected error")
			}

			var upErr *domain.UpstreamError
			var invErr *domain.InvalidResponseError
			switch {
			case tt.wantUp:
				if !errors.As(err, &upErr) {
					t.Fatalf("expected UpstreamError, got %T: %v", err, err)
				}
				if upErr.Detail.StatusCode != tt.status {
					t.Errorf("status: got %d, want %d", upErr.Detail.StatusCode, tt.status)
				}
				if string(upErr.Detail.Payload) != tt.wantPayload {
					t.Errorf("payload: got %s, want %s", upErr.Detail.Payload, tt.wantPayload)
				}
			case tt.wantInvalid:
				if !errors.As(err, &invErr) {
					t.Fatalf("expected InvalidResponseError, got %T: %v", err, err)
				}
				if string(invErr.Detail.Payload) != tt.wantPayload {
					t.Errorf("payload: got %s, want %s", invErr.Detail.Payload, tt.wantPayload)
				}
				if !strings.HasPrefix(invErr.Reason, tt.wantReason) {
					t.Errorf("reason: got %q, want prefix %q", invErr.Reason, tt.wantReason)
				}
			}
		})
	}
}

func TestSTTClient_Transcribe_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := elevenlabs.NewSTTClient("k", "", time.Second, url)
	_, err := client.Transcribe(context.Background(), testAudio())

	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upErr.Detail.StatusCode != 0 {
		t.Errorf("status: got %d, want 0", upErr.Detail.StatusCode)
	}
	if len(upErr.Detail.Payload) == 0 {
		t.Error("expected a diagnostic message")
	}
}

func TestSTTClient_Transcribe_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := elevenlabs.NewSTTClient("k", "", 50*time.Millisecond, server.URL)
	_, err := client.Transcribe(context.Background(), testAudio())

	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
}

func TestSTTClient_Transcribe_NoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := elevenlabs.NewSTTClient("k", "", time.Second, server.URL)
	if _, err := client.Transcribe(context.Background(), testAudio()); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls: got %d, want 1", got)
	}
}
