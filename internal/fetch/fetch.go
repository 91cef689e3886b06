// Package fetch downloads recipe sources to the sources directory and
// verifies their integrity.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

// Fetcher downloads and verifies sources.
type Fetcher struct {
	Retries int
	Logger  log.Logger
	client  *http.Client
}

// New returns a Fetcher configured with retries attempts per download and a
// hardened HTTP client.
func New(retries int, logger log.Logger) *Fetcher {
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Fetcher{
		Retries: retries,
		Logger:  logger,
		client:  newHTTPClient(),
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Minute,
	}
}

// Fetch downloads url to destPath, verifying expectedHash (a sha256 hex
// digest) if non-empty. It is idempotent: if destPath already exists, the
// download is skipped (the existing file's hash is NOT re-verified, matching
// the "fetch idempotence by filename existence" property). Makes up to
// f.Retries download attempts (at least one) with linear back-off (i
// seconds after attempt i).
func (f *Fetcher) Fetch(ctx context.Context, url, destPath, expectedHash string) error {
	if _, err := os.Stat(destPath); err == nil {
		f.Logger.Debug("source already present, skipping fetch", "path", destPath)
		return nil
	}

	var lastErr error
	attempts := f.Retries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * time.Second
			f.Logger.Warn("retrying fetch", "url", url, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := f.download(ctx, url, destPath); err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return mbuilderr.Wrap(mbuilderr.Fetch, "download failed after retries", lastErr).WithField(url)
	}

	if expectedHash == "" {
		f.Logger.Warn("source has no hash to verify, proceeding unverified", "url", url)
		return nil
	}

	actual, err := sha256File(destPath)
	if err != nil {
		_ = os.Remove(destPath)
		return mbuilderr.Wrap(mbuilderr.Io, "compute checksum", err).WithField(destPath)
	}
	if actual != expectedHash {
		_ = os.Remove(destPath)
		return mbuilderr.Newf(mbuilderr.Integrity, "checksum mismatch: want %s, got %s", expectedHash, actual).WithField(url)
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "mbuild/1.0")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if enc := resp.Header.Get("Content-Encoding"); enc != "" && enc != "identity" {
		return fmt.Errorf("compressed response not supported (got %s)", enc)
	}

	tmp := destPath + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("write body: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close destination: %w", err)
	}
	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize destination: %w", err)
	}
	return nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
