package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/chrissnell/meshview/pkg/config"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DownloadData fetches each configured sample file into dir. Files that are
// already present are skipped. Failures don't stop the remaining downloads;
// they are combined into the returned error.
func DownloadData(ctx context.Context, client *http.Client, downloads []config.DownloadData, dir string, logger *zap.SugaredLogger) error {
	if len(downloads) == 0 {
		return fmt.Errorf("no downloads configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var errs error
	for _, d := range downloads {
		name := d.File
		if name == "" {
			name = path.Base(d.URL)
		}
		dest := filepath.Join(dir, name)

		if _, err := os.Stat(dest); err == nil {
			logger.Infof("%s already exists, skipping", dest)
			continue
		}

		logger.Infow("downloading", "url", d.URL, "file", dest)
		n, err := download(ctx, client, d.URL, dest)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", d.URL, err))
			continue
		}
		logger.Infow("downloaded", "file", dest, "bytes", n)
	}
	return errs
}

// download writes url to dest through a temporary file so an interrupted
// transfer never leaves a partial file under the final name
func download(ctx context.Context, client *http.Client, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), dest)
}
