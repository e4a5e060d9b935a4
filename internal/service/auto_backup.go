package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"lingofocus/internal/audio"
	"lingofocus/internal/logging"
)

const (
	backupsKept   = 14
	audioCacheAge = 30 * 24 * time.Hour
)

// AutoBackup periodically exports a snapshot, optionally mails it, and
// trims old backups and stale speech audio.
type AutoBackup struct {
	scheduler *gocron.Scheduler
	backup    *BackupService
	email     *EmailService
	emailTo   string
	tts       *audio.TTSService
	interval  time.Duration
	log       zerolog.Logger
}

// NewAutoBackup creates the job runner; email and tts may be nil
func NewAutoBackup(backup *BackupService, email *EmailService, emailTo string, tts *audio.TTSService, interval time.Duration, logger zerolog.Logger) *AutoBackup {
	return &AutoBackup{
		scheduler: gocron.NewScheduler(time.UTC),
		backup:    backup,
		email:     email,
		emailTo:   emailTo,
		tts:       tts,
		interval:  interval,
		log:       logging.Component(logger, "auto_backup"),
	}
}

// Start schedules the job without blocking; a zero interval disables it
func (a *AutoBackup) Start() error {
	if a.interval <= 0 {
		a.log.Info().Msg("automatic backups disabled")
		return nil
	}

	// The first run waits a full interval
	if _, err := a.scheduler.Every(a.interval).WaitForSchedule().Do(a.run); err != nil {
		return fmt.Errorf("failed to schedule backups: %w", err)
	}
	a.scheduler.StartAsync()
	a.log.Info().Dur("interval", a.interval).Msg("automatic backups scheduled")
	return nil
}

// Stop terminates the scheduled job
func (a *AutoBackup) Stop() {
	a.scheduler.Stop()
}

func (a *AutoBackup) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := a.RunOnce(ctx); err != nil {
		a.log.Error().Err(err).Msg("automatic backup failed")
	}
}

// RunOnce performs a single backup cycle
func (a *AutoBackup) RunOnce(ctx context.Context) error {
	path, err := a.backup.Export(ctx, "")
	if err != nil {
		return err
	}

	if removed, err := a.backup.PruneBackups(backupsKept); err != nil {
		a.log.Warn().Err(err).Msg("failed to prune old backups")
	} else if removed > 0 {
		a.log.Debug().Int("removed", removed).Msg("old backups pruned")
	}

	if a.tts != nil {
		if removed, err := a.tts.Prune(audioCacheAge); err != nil {
			a.log.Warn().Err(err).Msg("failed to prune audio cache")
		} else if removed > 0 {
			a.log.Debug().Int("removed", removed).Msg("audio cache pruned")
		}
	}

	a.log.Info().Str("path", path).Msg("automatic backup written")

	if a.emailTo == "" || !a.email.IsEnabled() {
		return nil
	}
	name, blob, err := a.backup.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := a.email.SendBackup(ctx, a.emailTo, name, blob); err != nil && !errors.Is(err, ErrEmailDisabled) {
		return err
	}
	return nil
}
