package infrastructure

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"go.uber.org/zap"
)

// HTTPError represents a non-200 response from a vendor server
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// HTTPPageFetcher fetches vendor pages with retry and an optional cache
type HTTPPageFetcher struct {
	client    *http.Client
	cache     *sfcache.TieredCache[string, []byte]
	config    domain.FetchConfig
	logger    *zap.Logger
	retryWait time.Duration
}

// NewHTTPPageFetcher creates a page fetcher. A zero CacheTTL disables caching
// and every call goes to the vendor. Otherwise pages are kept in memory for
// CacheTTL, and also on disk when CacheDir is set.
func NewHTTPPageFetcher(config domain.FetchConfig, logger *zap.Logger) (*HTTPPageFetcher, error) {
	var (
		tc  *sfcache.TieredCache[string, []byte]
		err error
	)
	switch {
	case config.CacheTTL <= 0:
	case config.CacheDir == "":
		tc, err = sfcache.NewTiered[string, []byte](null.New[string, []byte](), sfcache.TTL(config.CacheTTL))
	default:
		if err := os.MkdirAll(config.CacheDir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
		persist, perr := localfs.New[string, []byte]("misc-installer", config.CacheDir)
		if perr != nil {
			return nil, fmt.Errorf("create persistence layer: %w", perr)
		}
		tc, err = sfcache.NewTiered[string, []byte](persist, sfcache.TTL(config.CacheTTL))
	}
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}

	if config.Attempts == 0 {
		config.Attempts = 1
	}

	return &HTTPPageFetcher{
		client:    &http.Client{Timeout: config.Timeout},
		cache:     tc,
		config:    config,
		logger:    logger,
		retryWait: 500 * time.Millisecond,
	}, nil
}

// FetchPage returns the body of a vendor page
func (f *HTTPPageFetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	if f.cache == nil {
		f.logger.Debug("Fetching provider page", zap.String("url", url))
		return f.fetch(ctx, url)
	}

	hash := sha256.Sum256([]byte(url))
	key := hex.EncodeToString(hash[:])

	return f.cache.GetSet(ctx, key, func(ctx context.Context) ([]byte, error) {
		f.logger.Debug("Fetching provider page", zap.String("url", url))
		return f.fetch(ctx, url)
	}, f.config.CacheTTL)
}

func (f *HTTPPageFetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			if f.config.UserAgent != "" {
				req.Header.Set("User-Agent", f.config.UserAgent)
			}

			resp, err := f.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
			}
			return io.ReadAll(resp.Body)
		},
		retry.Context(ctx),
		retry.Attempts(f.config.Attempts),
		retry.Delay(f.retryWait),
		retry.MaxJitter(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("Retrying page fetch",
				zap.Uint("attempt", n+1),
				zap.String("url", url),
				zap.Error(err))
		}),
	)
}

// isRetryableError reports whether a fetch error is transient
func isRetryableError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return true
}

// ParseDocument parses a fetched page
func ParseDocument(page []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// SelectAttr returns an attribute of the first element matching selector.
// A missing element or attribute wraps domain.ErrMarkupNotFound.
func SelectAttr(doc *goquery.Document, selector, attr string) (string, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: no element matches %q", domain.ErrMarkupNotFound, selector)
	}
	value, ok := sel.Attr(attr)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %q has no %s attribute", domain.ErrMarkupNotFound, selector, attr)
	}
	return strings.TrimSpace(value), nil
}

// SelectText returns the trimmed text of the first element matching selector
func SelectText(doc *goquery.Document, selector string) (string, error) {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: no element matches %q", domain.ErrMarkupNotFound, selector)
	}
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return "", fmt.Errorf("%w: %q is empty", domain.ErrMarkupNotFound, selector)
	}
	return text, nil
}
