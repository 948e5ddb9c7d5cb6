package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultChunkSize matches the read size the camera gateway has always used.
const DefaultChunkSize = 8096

// ErrStreamClosed is returned once the source has no more bytes to give.
var ErrStreamClosed = errors.New("stream closed")

// Source supplies raw, unframed bytes from the camera stream.
// ReadChunk blocks until data is available or the stream ends. The returned
// slice is only valid until the next call.
type Source interface {
	ReadChunk() ([]byte, error)
}

// ReaderSource adapts any io.Reader into a Source.
type ReaderSource struct {
	r   io.Reader
	buf []byte
}

func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ReaderSource{r: r, buf: make([]byte, chunkSize)}
}

func (s *ReaderSource) ReadChunk() ([]byte, error) {
	n, err := s.r.Read(s.buf)
	return s.buf[:n], err
}

// HTTPSource reads an MJPEG stream over HTTP(S). It connects once and never reconnects.
type HTTPSource struct {
	*ReaderSource
	body        io.ReadCloser
	contentType string
}

// Dial opens url and returns a source reading its body. Cancelling ctx aborts
// any blocked ReadChunk.
func Dial(ctx context.Context, client *http.Client, url string, chunkSize int) (*HTTPSource, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to stream %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("connect to stream %s: unexpected status %s", url, resp.Status)
	}

	return &HTTPSource{
		ReaderSource: NewReaderSource(resp.Body, chunkSize),
		body:         resp.Body,
		contentType:  resp.Header.Get("Content-Type"),
	}, nil
}

// ContentType returns the Content-Type the server announced, usually multipart/x-mixed-replace.
func (s *HTTPSource) ContentType() string {
	return s.contentType
}

func (s *HTTPSource) Close() error {
	return s.body.Close()
}
