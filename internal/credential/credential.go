// Package credential locates the cloud service account file, either on local disk or by
// downloading it from a configured URL.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/book-expert/voice-clone-service/internal/core"
)

const (
	jsonExtension   = ".json"
	dirPermissions  = 0o750
	filePermissions = 0o600
)

var (
	// ErrAmbiguous indicates more than one credential file in the directory.
	ErrAmbiguous = errors.New("only one JSON credential file should exist")
	// ErrURLMissing indicates no local credential and no download URL.
	ErrURLMissing = errors.New("credential download URL is not set")
	// ErrURLNotJSON indicates the download URL does not name a .json file.
	ErrURLNotJSON = errors.New("credential URL must point to a JSON file")
	// ErrInvalidJSON indicates the downloaded document is not JSON.
	ErrInvalidJSON = errors.New("downloaded credential is not valid JSON")
	errDownload    = errors.New("failed to download credential")
)

// Acquirer resolves the credential file path.
type Acquirer struct {
	dir         string
	downloadURL string
	httpClient  *http.Client
}

// NewAcquirer creates an acquirer that looks in dir and falls back to downloadURL.
// A nil httpClient uses http.DefaultClient.
func NewAcquirer(dir, downloadURL string, httpClient *http.Client) *Acquirer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Acquirer{dir: dir, downloadURL: downloadURL, httpClient: httpClient}
}

// Acquire returns the path to exactly one credential file. Every failure wraps core.ErrConfiguration.
func (a *Acquirer) Acquire(ctx context.Context) (string, error) {
	mkdirErr := os.MkdirAll(a.dir, dirPermissions)
	if mkdirErr != nil {
		return "", fmt.Errorf("%w: failed to create credential directory: %w", core.ErrConfiguration, mkdirErr)
	}

	matches, err := filepath.Glob(filepath.Join(a.dir, "*"+jsonExtension))
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}

	switch {
	case len(matches) > 1:
		return "", fmt.Errorf("%w: found %d JSON files in %s: %w", core.ErrConfiguration, len(matches), a.dir, ErrAmbiguous)
	case len(matches) == 1:
		return matches[0], nil
	}

	downloaded, err := a.download(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}

	return downloaded, nil
}

func (a *Acquirer) download(ctx context.Context) (string, error) {
	if a.downloadURL == "" {
		return "", ErrURLMissing
	}

	parsed, err := url.Parse(a.downloadURL)
	if err != nil {
		return "", fmt.Errorf("invalid credential URL: %w", err)
	}

	filename := path.Base(parsed.Path)
	if !strings.HasSuffix(filename, jsonExtension) {
		return "", ErrURLNotJSON
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.downloadURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errDownload, err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: status %s", errDownload, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errDownload, err)
	}

	if !json.Valid(body) {
		return "", ErrInvalidJSON
	}

	target := filepath.Join(a.dir, filename)

	writeErr := os.WriteFile(target, body, filePermissions)
	if writeErr != nil {
		return "", fmt.Errorf("failed to save credential file: %w", writeErr)
	}

	return target, nil
}
