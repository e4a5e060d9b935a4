package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lingofocus/internal/logging"
	"lingofocus/internal/store"
)

const (
	backupPrefix = "lingofocus_backup_"
	backupSuffix = ".json"

	// maxBackupSize bounds uploads read into memory
	maxBackupSize = 32 << 20
)

// BackupFileName is the export file name for a snapshot taken at t
func BackupFileName(t time.Time) string {
	return backupPrefix + t.Format("20060102_150405") + backupSuffix
}

// BackupService handles snapshot export, restore and reset
type BackupService struct {
	store *store.Store
	dir   string
	now   func() time.Time
	log   zerolog.Logger
}

// NewBackupService creates a backup service writing default exports into dir
func NewBackupService(st *store.Store, dir string, logger zerolog.Logger) *BackupService {
	return &BackupService{
		store: st,
		dir:   dir,
		now:   time.Now,
		log:   logging.Component(logger, "backup"),
	}
}

// Export writes a snapshot to outputPath, or to a timestamped file in the
// backup directory when outputPath is empty. It returns the path written.
func (s *BackupService) Export(ctx context.Context, outputPath string) (string, error) {
	if outputPath == "" {
		outputPath = filepath.Join(s.dir, BackupFileName(s.now()))
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	blob, err := s.store.ExportSnapshot(ctx)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outputPath, blob, 0644); err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	s.log.Info().Str("path", outputPath).Int("bytes", len(blob)).Msg("snapshot exported")
	return outputPath, nil
}

// ExportToWriter streams a snapshot, e.g. into an HTTP download
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	blob, err := s.store.ExportSnapshot(ctx)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(blob))
	return err
}

// Snapshot returns the exported bytes together with their file name
func (s *BackupService) Snapshot(ctx context.Context) (string, []byte, error) {
	blob, err := s.store.ExportSnapshot(ctx)
	if err != nil {
		return "", nil, err
	}
	return BackupFileName(s.now()), blob, nil
}

// Import restores a snapshot file, replacing all collections and counts
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores a snapshot from an upload
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) error {
	blob, err := io.ReadAll(io.LimitReader(r, maxBackupSize+1))
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if len(blob) > maxBackupSize {
		return fmt.Errorf("%w: backup larger than %d bytes", store.ErrInvalidSnapshot, maxBackupSize)
	}

	if err := s.store.ImportSnapshot(ctx, blob); err != nil {
		s.log.Warn().Err(err).Msg("snapshot import rejected")
		return err
	}
	s.log.Info().Int("bytes", len(blob)).Msg("snapshot imported")
	return nil
}

// Reset clears collections and counts; seeds come back on the next read
func (s *BackupService) Reset(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return err
	}
	s.log.Warn().Msg("all study data reset")
	return nil
}

// PruneBackups keeps the newest keep exports in the backup directory and
// reports how many were removed.
func (s *BackupService) PruneBackups(keep int) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), backupSuffix) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return 0, nil
	}

	// The timestamp format sorts lexically
	sort.Strings(names)
	removed := 0
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
