package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"transcribe-gateway/internal/domain"
)

// Receiver pulls a single audio file out of a multipart request and buffers
// it in memory.
type Receiver struct {
	field    string
	maxBytes int64
}

func NewReceiver(field string, maxBytes int64) *Receiver {
	return &Receiver{field: field, maxBytes: maxBytes}
}

// Receive reads the first file part named r.field. Other parts are skipped.
// Errors wrap domain.ErrMissingInput, domain.ErrMalformedUpload or
// domain.ErrUploadTooLarge.
func (r *Receiver) Receive(w http.ResponseWriter, req *http.Request) (domain.UploadedAudio, error) {
	if r.maxBytes > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxBytes)
	}
	defer req.Body.Close()

	mr, err := req.MultipartReader()
	if err != nil {
		return domain.UploadedAudio{}, fmt.Errorf("%w: %v", domain.ErrMalformedUpload, err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return domain.UploadedAudio{}, domain.ErrMissingInput
		}
		if err != nil {
			return domain.UploadedAudio{}, classifyReadError(err)
		}

		if part.FormName() != r.field || part.FileName() == "" {
			_, err = io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return domain.UploadedAudio{}, classifyReadError(err)
			}
			continue
		}

		var buf bytes.Buffer
		_, err = buf.ReadFrom(part)
		part.Close()
		if err != nil {
			return domain.UploadedAudio{}, classifyReadError(err)
		}

		if buf.Len() == 0 {
			return domain.UploadedAudio{}, domain.ErrMissingInput
		}

		contentType := part.Header.Get("Content-Type")
		if contentType == "" {
			contentType = domain.DefaultContentType
		}

		return domain.UploadedAudio{
			Data:        buf.Bytes(),
			ContentType: contentType,
			Filename:    part.FileName(),
		}, nil
	}
}

func classifyReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit is %d bytes", domain.ErrUploadTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %v", domain.ErrMalformedUpload, err)
}
