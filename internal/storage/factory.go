package storage

import (
	"fmt"
	"log/slog"

	"github.com/geopose/geopose/internal/storage/files"
	sqlitestorage "github.com/geopose/geopose/internal/storage/sqlite"
)

// Options selects the backends for a run.
type Options struct {
	OutputDir      string
	ArchiveEnabled bool
	ArchivePath    string
}

// NewBackends creates the configured backends. The files backend is always
// present since it is the run's primary deliverable; the sqlite archive is
// optional.
func NewBackends(opts Options, logger *slog.Logger) ([]Backend, error) {
	backends := []Backend{files.New(opts.OutputDir, logger)}

	if opts.ArchiveEnabled {
		archive, err := sqlitestorage.New(opts.ArchivePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open run archive: %w", err)
		}
		backends = append(backends, archive)
	}

	return backends, nil
}
