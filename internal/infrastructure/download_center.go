package infrastructure

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/hashicorp/go-multierror"
	"github.com/yourusername/misc-installer-go/internal/domain"
	"go.uber.org/zap"
)

// DownloadCenter fetches download requests in the background and hands the
// results back over a channel
type DownloadCenter struct {
	client   *http.Client
	dir      string
	config   domain.FetchConfig
	logger   *zap.Logger
	parallel int
}

// NewDownloadCenter creates a download center writing into dir
func NewDownloadCenter(dir string, config domain.FetchConfig, logger *zap.Logger) *DownloadCenter {
	if config.Attempts == 0 {
		config.Attempts = 1
	}
	// Timeout is a per-page budget; archives are bounded by the caller's context instead
	return &DownloadCenter{
		client:   &http.Client{},
		dir:      dir,
		config:   config,
		logger:   logger,
		parallel: 2,
	}
}

// Submit starts downloading every request. Exactly one result per request is
// delivered on the returned channel, which is closed afterwards.
func (dc *DownloadCenter) Submit(ctx context.Context, requests []domain.DownloadRequest) <-chan domain.DownloadResult {
	results := make(chan domain.DownloadResult, len(requests))

	if err := os.MkdirAll(dc.dir, 0755); err != nil {
		for _, req := range requests {
			results <- domain.DownloadResult{Request: req, Err: fmt.Errorf("failed to create download directory: %w", err)}
		}
		close(results)
		return results
	}

	sem := make(chan struct{}, dc.parallel)
	var wg sync.WaitGroup
	for _, req := range requests {
		wg.Add(1)
		go func(req domain.DownloadRequest) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- domain.DownloadResult{Request: req, Err: ctx.Err()}
				return
			}

			filePath, err := dc.download(ctx, req)
			results <- domain.DownloadResult{Request: req, FilePath: filePath, Err: err}
		}(req)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// Collect drains a result channel, returning results in arrival order and
// every download error combined
func Collect(results <-chan domain.DownloadResult) ([]domain.DownloadResult, error) {
	var (
		all  []domain.DownloadResult
		errs *multierror.Error
	)
	for result := range results {
		all = append(all, result)
		if result.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", result.Request.URL, result.Err))
		}
	}
	return all, errs.ErrorOrNil()
}

func (dc *DownloadCenter) download(ctx context.Context, req domain.DownloadRequest) (string, error) {
	start := time.Now()
	dc.logger.Info("Starting download", zap.String("url", req.URL))

	filePath, err := retry.DoWithData(
		func() (string, error) {
			return dc.fetchToFile(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(dc.config.Attempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			dc.logger.Warn("Retrying download",
				zap.Uint("attempt", n+1),
				zap.String("url", req.URL),
				zap.Error(err))
		}),
	)
	if err != nil {
		dc.logger.Error("Download failed", zap.String("url", req.URL), zap.Error(err))
		return "", err
	}

	if req.Checksum != nil {
		if err := VerifyChecksum(filePath, req.Checksum); err != nil {
			os.Remove(filePath)
			dc.logger.Error("Checksum verification failed", zap.String("url", req.URL), zap.Error(err))
			return "", err
		}
	}

	dc.logger.Info("Download completed",
		zap.String("url", req.URL),
		zap.String("file", filePath),
		zap.Duration("duration", time.Since(start)))
	return filePath, nil
}

func (dc *DownloadCenter) fetchToFile(ctx context.Context, req domain.DownloadRequest) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	if dc.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", dc.config.UserAgent)
	}

	resp, err := dc.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{URL: req.URL, StatusCode: resp.StatusCode}
	}

	// The file name keeps the archive suffix so the extractor can be chosen from it
	out, err := os.CreateTemp(dc.dir, "*-"+DownloadFileName(req.URL))
	if err != nil {
		return "", retry.Unrecoverable(fmt.Errorf("failed to create download file: %w", err))
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

// DownloadFileName derives a local file name from a download URL, ignoring the query string
func DownloadFileName(rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
	}
	switch name {
	case "", ".", "/", "..":
		return "download"
	}
	return strings.ReplaceAll(name, string(os.PathSeparator), "_")
}

// VerifyChecksum compares the digest of a file against the expected checksum
func VerifyChecksum(filePath string, checksum *domain.Checksum) error {
	var h hash.Hash
	switch checksum.Type {
	case domain.ChecksumMD5:
		h = md5.New()
	case domain.ChecksumSHA1:
		h = sha1.New()
	case domain.ChecksumSHA256:
		h = sha256.New()
	default:
		return fmt.Errorf("unsupported checksum type %q", checksum.Type)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != strings.ToLower(checksum.Value) {
		return fmt.Errorf("%w: expected %s %s, got %s", domain.ErrChecksumMismatch, checksum.Type, checksum.Value, got)
	}
	return nil
}
