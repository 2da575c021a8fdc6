package gocog

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// Source is the byte-range abstraction every reader is built on: an
// opaque handle exposing ranged fetches and, optionally, a known total
// size. Implementations must tolerate concurrent calls to Fetch, since
// Images share a single Source once a TiffReader has been initialized.
type Source interface {
	// Fetch returns up to length bytes starting at offset. The
	// returned slice may be shorter than length if the source is
	// truncated at that point; callers compare against what they
	// asked for rather than assuming it was honored exactly.
	Fetch(ctx context.Context, offset, length uint64) ([]byte, error)

	// Size reports the total byte length of the source, if known.
	Size() (size uint64, ok bool)
}

// FileSource adapts an *os.File (or any ReaderAt with a known size) to
// Source, for local-disk COGs.
type FileSource struct {
	r    io.ReaderAt
	size uint64
}

// NewFileSource opens path and stats it for a size hint.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gocog: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gocog: stat %s: %w", path, err)
	}
	return &FileSource{r: f, size: uint64(info.Size())}, nil
}

// NewFileSourceFromReaderAt wraps an already-open ReaderAt, for callers
// that manage the file's lifecycle themselves.
func NewFileSourceFromReaderAt(r io.ReaderAt, size uint64) *FileSource {
	return &FileSource{r: r, size: size}
}

func (s *FileSource) Fetch(_ context.Context, offset, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := s.r.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("gocog: file read at %d: %w", offset, err)
	}
	return buf[:n], nil
}

func (s *FileSource) Size() (uint64, bool) { return s.size, s.size > 0 }

// Close releases the underlying file if FileSource opened it itself.
func (s *FileSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// defaultReadAheadSize covers the common sequential-access case: a COG
// header read tends to be followed immediately by IFD reads a few
// hundred bytes further on, so a small buffer beyond the requested
// range avoids a second round trip.
const defaultReadAheadSize = 64 * 1024

// HTTPSource implements Source over HTTP range requests using
// fasthttp, with read-ahead buffering, exposing Fetch(offset, length)
// instead of io.ReadSeeker, and safe for concurrent callers.
type HTTPSource struct {
	url           string
	client        *fasthttp.Client
	mu            sync.Mutex
	size          int64
	readAheadSize int

	buffer      []byte
	bufferStart int64
	bufferEnd   int64
}

// NewHTTPSource creates an HTTPSource, issuing a HEAD request to learn
// the file size if possible. A nil client gets sensible default
// timeouts.
func NewHTTPSource(url string, client *fasthttp.Client) *HTTPSource {
	if client == nil {
		client = &fasthttp.Client{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
	}
	hs := &HTTPSource{
		url:           url,
		client:        client,
		readAheadSize: defaultReadAheadSize,
		bufferStart:   -1,
		bufferEnd:     -1,
	}
	hs.size = hs.probeSize()
	return hs
}

// NewHTTPSourceWithReadAhead is NewHTTPSource with a caller-chosen
// read-ahead buffer size.
func NewHTTPSourceWithReadAhead(url string, client *fasthttp.Client, readAheadSize int) *HTTPSource {
	hs := NewHTTPSource(url, client)
	if readAheadSize > 0 {
		hs.readAheadSize = readAheadSize
	}
	return hs
}

func (hs *HTTPSource) probeSize() int64 {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(hs.url)
	req.Header.SetMethod("HEAD")

	if err := hs.client.Do(req, resp); err != nil {
		return -1
	}
	if cl := resp.Header.ContentLength(); cl > 0 {
		return int64(cl)
	}
	return -1
}

func (hs *HTTPSource) Fetch(ctx context.Context, offset, length uint64) ([]byte, error) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	start := int64(offset)
	want := int64(length)

	if hs.buffer != nil && start >= hs.bufferStart && start < hs.bufferEnd {
		avail := hs.bufferEnd - start
		if avail >= want {
			off := start - hs.bufferStart
			return append([]byte(nil), hs.buffer[off:off+want]...), nil
		}
	}

	readSize := want
	if hs.readAheadSize > 0 && int64(hs.readAheadSize) > readSize {
		readSize = int64(hs.readAheadSize)
	}
	if hs.size > 0 && start+readSize > hs.size {
		readSize = hs.size - start
	}
	if readSize < want {
		readSize = want
	}

	data, err := hs.fetchRange(ctx, start, start+readSize-1)
	if err != nil {
		return nil, err
	}

	if int64(len(data)) > want {
		hs.buffer = data
		hs.bufferStart = start
		hs.bufferEnd = start + int64(len(data))
		return append([]byte(nil), data[:want]...), nil
	}
	return data, nil
}

func (hs *HTTPSource) fetchRange(_ context.Context, start, end int64) ([]byte, error) {
	if hs.size > 0 && end >= hs.size {
		end = hs.size - 1
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(hs.url)
	req.Header.SetMethod("GET")
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	if err := hs.client.Do(req, resp); err != nil {
		return nil, fmt.Errorf("gocog: http fetch %d-%d: %w", start, end, err)
	}

	code := resp.StatusCode()
	if code != fasthttp.StatusPartialContent && code != fasthttp.StatusOK {
		return nil, fmt.Errorf("gocog: http fetch %d-%d: unexpected status %d", start, end, code)
	}

	body := resp.Body()
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func (hs *HTTPSource) Size() (uint64, bool) {
	if hs.size <= 0 {
		return 0, false
	}
	return uint64(hs.size), true
}
