package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// HTTPSource issues HTTP range requests against a single URL. The server
// must honor Range headers; a 200 response would force a full download and
// is treated as an error.
type HTTPSource struct {
	client *http.Client
	url    string

	// Total file size, cached after the first probe. -1 until known.
	length int64
}

func NewHTTPSource(client *http.Client, url string) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client, url: url, length: -1}
}

func (s *HTTPSource) URL() string {
	return s.url
}

// Length learns the total file size by requesting the first byte and
// reading the Content-Range header of the 206 response. An empty file has
// no satisfiable range, so a 416 whose Content-Range reports a zero total
// ("bytes */0") counts as length 0.
func (s *HTTPSource) Length(ctx context.Context) (int64, error) {
	if s.length >= 0 {
		return s.length, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var length int64
	switch resp.StatusCode {
	case http.StatusPartialContent:
		length, err = parseContentRangeLength(resp.Header.Get("Content-Range"))
		if err != nil {
			return 0, err
		}
	case http.StatusRequestedRangeNotSatisfiable:
		length, err = parseContentRangeLength(resp.Header.Get("Content-Range"))
		if err != nil || length != 0 {
			return 0, fmt.Errorf("range request for %s failed: %s", s.url, resp.Status)
		}
	case http.StatusOK:
		return 0, fmt.Errorf("server does not support range requests for %s", s.url)
	default:
		return 0, fmt.Errorf("range request for %s failed: %s", s.url, resp.Status)
	}

	s.length = length
	return length, nil
}

func (s *HTTPSource) ReadRange(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("invalid byte range [%d, %d)", offset, offset+length)
	}
	if length == 0 {
		return io.NopCloser(strings.NewReader("")), nil
	}

	resp, err := s.doRange(ctx, offset, offset+length-1)
	if err != nil {
		return nil, err
	}

	// Servers may return fewer bytes when the range extends past EOF, but
	// never more: cap the body at the requested length regardless.
	return &limitedBody{r: io.LimitReader(resp.Body, length), c: resp.Body}, nil
}

// doRange issues a GET for the inclusive byte range [from, to].
func (s *HTTPSource) doRange(ctx context.Context, from, to int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", from, to))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil, fmt.Errorf("server does not support range requests for %s", s.url)
		}
		return nil, fmt.Errorf("range request for %s failed: %s", s.url, resp.Status)
	}

	return resp, nil
}

type limitedBody struct {
	r io.Reader
	c io.Closer
}

func (b *limitedBody) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *limitedBody) Close() error               { return b.c.Close() }

// parseContentRangeLength extracts the total size from a Content-Range
// header such as "bytes 0-0/1234".
func parseContentRangeLength(header string) (int64, error) {
	_, total, ok := strings.Cut(header, "/")
	if !ok {
		return 0, fmt.Errorf("malformed Content-Range header %q", header)
	}

	length, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	if err != nil || length < 0 {
		return 0, fmt.Errorf("malformed Content-Range header %q", header)
	}
	return length, nil
}
