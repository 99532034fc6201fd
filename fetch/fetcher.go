// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single source fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes caps the size of a fetched document.
	DefaultMaxBytes int64 = 10 << 20

	// DefaultUserAgent is sent with every HTTP request.
	DefaultUserAgent = "ragchat/1.0"
)

// Fetcher retrieves a source and returns its plain text.
type Fetcher interface {
	// Fetch retrieves uri and extracts its text.
	// Retrieval failures wrap ErrFetch; extraction failures wrap ErrParse
	// or ErrNoContent.
	Fetch(ctx context.Context, uri string) (string, error)
}

// HTTPFetcher fetches http(s) URLs, file:// URLs, and local paths.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	maxBytes  int64
	userAgent string
	logger    *slog.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher) error

// WithHTTPClient sets the HTTP client used for remote sources.
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) error {
		if client == nil {
			return fmt.Errorf("%w: nil HTTP client", ErrInvalidOption)
		}
		f.client = client
		return nil
	}
}

// WithTimeout sets the per-source timeout. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(f *HTTPFetcher) error {
		if timeout < 0 {
			return fmt.Errorf("%w: negative timeout %s", ErrInvalidOption, timeout)
		}
		f.timeout = timeout
		return nil
	}
}

// WithRateLimit limits remote requests to rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *HTTPFetcher) error {
		if rps <= 0 || burst < 1 {
			return fmt.Errorf("%w: rate limit %v/%d", ErrInvalidOption, rps, burst)
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithMaxBytes caps the accepted document size.
func WithMaxBytes(n int64) Option {
	return func(f *HTTPFetcher) error {
		if n < 1 {
			return fmt.Errorf("%w: max bytes %d", ErrInvalidOption, n)
		}
		f.maxBytes = n
		return nil
	}
}

// WithUserAgent sets the User-Agent header for remote requests.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) error {
		f.userAgent = ua
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// NewHTTPFetcher creates a fetcher with default settings modified by opts.
func NewHTTPFetcher(opts ...Option) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		client:    http.DefaultClient,
		timeout:   DefaultTimeout,
		maxBytes:  DefaultMaxBytes,
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "fetcher")
	return f, nil
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetch, uri, err)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchRemote(ctx, uri)
	case "file":
		return f.fetchFile(ctx, u.Path)
	case "":
		return f.fetchFile(ctx, uri)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *HTTPFetcher) fetchRemote(ctx context.Context, uri string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrFetch, uri, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetch, uri, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetch, uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s: HTTP %d", ErrFetch, uri, resp.StatusCode)
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetch, uri, err)
	}

	f.logger.Debug("fetched source",
		"uri", uri,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start))

	return Extract(resp.Header.Get("Content-Type"), urlPath(uri), data)
}

func (f *HTTPFetcher) fetchFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer file.Close()

	data, err := f.readLimited(file)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}

	f.logger.Debug("read source file", "path", path, "bytes", len(data))
	return Extract("", path, data)
}

func (f *HTTPFetcher) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

// urlPath returns the path component of a URL for extension-based detection.
func urlPath(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return parsed.Path
}
