package cloudstorage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"
)

const dirPermissions = 0o750

// Remote is the subset of Bucket that Sync needs.
type Remote interface {
	List(ctx context.Context, prefix, delimiter string) ([]string, error)
	Download(ctx context.Context, name, localPath string) error
}

// SyncReport summarizes a Sync run.
type SyncReport struct {
	Downloaded []string
	Skipped    []string
}

// Sync mirrors every object under prefix into dir by basename. Directory placeholders are
// ignored and files already present locally are never overwritten.
func Sync(ctx context.Context, remote Remote, prefix, delimiter, dir string, log *logger.Logger) (*SyncReport, error) {
	mkdirErr := os.MkdirAll(dir, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, mkdirErr)
	}

	names, err := remote.List(ctx, prefix, delimiter)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}

	for _, name := range names {
		if strings.HasSuffix(name, "/") {
			continue
		}

		filename := path.Base(name)
		localPath := filepath.Join(dir, filename)

		_, statErr := os.Stat(localPath)
		if statErr == nil {
			log.Info("Skipping %s - already exists locally", filename)
			report.Skipped = append(report.Skipped, filename)

			continue
		}

		log.Info("Downloading %s...", filename)

		downloadErr := remote.Download(ctx, name, localPath)
		if downloadErr != nil {
			return report, fmt.Errorf("failed to sync %s: %w", name, downloadErr)
		}

		report.Downloaded = append(report.Downloaded, filename)
	}

	return report, nil
}
