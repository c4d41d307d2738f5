package audio_test

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"transcribe-gateway/internal/domain"
	"transcribe-gateway/internal/infra/audio"
)

type formPart struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func newMultipartRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		if p.filename != "" {
			header.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		} else {
			header.Set("Content-Disposition", `form-data; name="`+p.field+`"`)
		}
		if p.contentType != "" {
			header.Set("Content-Type", p.contentType)
		}
		w, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("creating part: %v", err)
		}
		if _, err := w.Write(p.content); err != nil {
			t.Fatalf("writing part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestReceiver_Receive(t *testing.T) {
	receiver := audio.NewReceiver("file", 1<<20)
	testAudio := []byte("test audio content")

	req := newMultipartRequest(t,
		formPart{field: "note", content: []byte("ignored")},
		formPart{field: "file", filename: "clip.webm", contentType: "audio/webm", content: testAudio},
	)

	got, err := receiver.Receive(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}

	if !bytes.Equal(got.Data, testAudio) {
		t.Errorf("audio mismatch: got %d bytes, want %d bytes", len(got.Data), len(testAudio))
	}
	if got.ContentType != "audio/webm" {
		t.Errorf("content type: got %s, want audio/webm", got.ContentType)
	}
	if got.Filename != "clip.webm" {
		t.Errorf("filename: got %s, want clip.webm", got.Filename)
	}
}

func TestReceiver_DefaultsContentType(t *testing.T) {
	receiver := audio.NewReceiver("file", 1<<20)
	req := newMultipartRequest(t, formPart{field: "file", filename: "clip", content: []byte("abc")})

	got, err := receiver.Receive(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.ContentType != domain.DefaultContentType {
		t.Errorf("content type: got %s, want %s", got.ContentType, domain.DefaultContentType)
	}
}

func TestReceiver_TakesFirstFilePart(t *testing.T) {
	receiver := audio.NewReceiver("file", 1<<20)
	req := newMultipartRequest(t,
		formPart{field: "file", filename: "first.wav", content: []byte("first")},
		formPart{field: "file", filename: "second.wav", content: []byte("second")},
	)

	got, err := receiver.Receive(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got.Data) != "first" {
		t.Errorf("data: got %q, want first", got.Data)
	}
}

func TestReceiver_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		wantErr error
	}{
		{
			name: "no file part",
			req: func(t *testing.T) *http.Request {
				return newMultipartRequest(t, formPart{field: "note", content: []byte("hi")})
			},
			wantErr: domain.ErrMissingInput,
		},
		{
			name: "file field without filename",
			req: func(t *testing.T) *http.Request {
				return newMultipartRequest(t, formPart{field: "file", content: []byte("not a file")})
			},
			wantErr: domain.ErrMissingInput,
		},
		{
			name: "wrong field name",
			req: func(t *testing.T) *http.Request {
				return newMultipartRequest(t, formPart{field: "audio", filename: "a.wav", content: []byte("abc")})
			},
			wantErr: domain.ErrMissingInput,
		},
		{
			name: "empty file",
			req: func(t *testing.T) *http.Request {
				return newMultipartRequest(t, formPart{field: "file", filename: "a.wav"})
			},
			wantErr: domain.ErrMissingInput,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader(`{"file":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantErr: domain.ErrMalformedUpload,
		},
		{
			name: "truncated body",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/transcribe",
					strings.NewReader("--XYZ\r\nContent-Disposition: form-data; name=\"file\"; filename=\"a.wav\"\r\n\r\nabc"))
				req.Header.Set("Content-Type", "multipart/form-data; boundary=XYZ")
				return req
			},
			wantErr: domain.ErrMalformedUpload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver := audio.NewReceiver("file", 1<<20)
			_, err := receiver.Receive(httptest.NewRecorder(), tt.req(t))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReceiver_TooLarge(t *testing.T) {
	receiver := audio.NewReceiver("file", 512)
	req := newMultipartRequest(t, formPart{field: "file", filename: "big.wav", content: bytes.Repeat([]byte("a"), 4096)})

	_, err := receiver.Receive(httptest.NewRecorder(), req)
	if !errors.Is(err, domain.ErrUploadTooLarge) {
		t.Errorf("error: got %v, want %v", err, domain.ErrUploadTooLarge)
	}
}
