package downloader

//go:generate mockgen -destination=../../mock/downloader/downloader.go -package=mock_downloader github.com/zeecrown/imager/web/downloader Service

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBytes limits the size of a downloaded image.
const DefaultMaxBytes = 32 << 20

// Service describes downloader interface.
type Service interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type impl struct {
	client   *http.Client
	maxBytes int64
}

// New returns downloader implementation. A nil client means
// http.DefaultClient, maxBytes <= 0 means DefaultMaxBytes.
func New(client *http.Client, maxBytes int64) Service {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &impl{client: client, maxBytes: maxBytes}
}

// Download downloads file and returns response body from it.
func (s *impl) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s failed with error: %w", url, err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s failed with error: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading %s, status code is: %d", url, res.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(res.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body for: %s failed with error: %w", url, err)
	}
	if int64(len(b)) > s.maxBytes {
		return nil, fmt.Errorf("body of %s exceeds %d bytes", url, s.maxBytes)
	}
	return b, nil
}
