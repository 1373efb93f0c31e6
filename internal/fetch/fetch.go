// Package fetch downloads a report document to a local working file.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/errors"
)

// HTTP downloads documents with a single GET. Retrying is left to the
// scheduler that invokes the run.
type HTTP struct {
	Client *http.Client
	Logger *zerolog.Logger
}

// New creates an HTTP fetcher with the default timeout.
func New(logger *zerolog.Logger) *HTTP {
	return &HTTP{
		Client: &http.Client{Timeout: constants.DefaultHTTPTimeout},
		Logger: logger,
	}
}

// Fetch downloads url into dir as name, replacing any previous file, and
// returns the file path. A non-200 response is an ExtractionError.
func (h *HTTP) Fetch(ctx context.Context, url, dir, name string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.NewExtractionError(url, "invalid document URL", err)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", errors.NewExtractionError(url, "download failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewExtractionError(url, fmt.Sprintf("unexpected status %s", resp.Status), nil)
	}

	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return "", errors.WrapIO("create", dir, err)
	}
	path := filepath.Join(dir, name)
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", errors.WrapIO("create", tmp, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", errors.NewExtractionError(url, "download interrupted", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", errors.WrapIO("rename", path, err)
	}

	if h.Logger != nil {
		h.Logger.Info().
			Str("url", url).
			Str("file", path).
			Int64("bytes", n).
			Msg("Downloaded report document")
	}
	return path, nil
}

// FileName returns the working file name for a report, keeping the URL's
// extension.
func FileName(url, dateKey string) string {
	ext := strings.ToLower(filepath.Ext(strings.SplitN(url, "?", 2)[0]))
	if ext == "" || len(ext) > 5 {
		ext = ".pdf"
	}
	return "sitrep-" + dateKey + ext
}
