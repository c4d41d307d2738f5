package domain

// DefaultContentType is used when an upload part carries no Content-Type.
const DefaultContentType = "application/octet-stream"

type UploadedAudio struct {
	Data        []byte
	ContentType string
	Filename    string
}

func (a UploadedAudio) Size() int {
	return len(a.Data)
}

type TranscriptionResult struct {
	Text string
}
