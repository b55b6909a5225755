package db

import (
	"context"
	"time"

	"ghostink/svc/util"

	"github.com/pkg/errors"
)

// StartWALMaintenance checkpoints the write-ahead log every interval until
// ctx is cancelled, then runs one final checkpoint. The returned channel is
// closed once the loop has exited. In-memory databases have no WAL and the
// loop exits immediately.
func (s *SQLite) StartWALMaintenance(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if s.memory || interval <= 0 {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.checkpoint(ctx); err != nil {
					util.Error().Err(err).Msg("WAL checkpoint failed")
				}
			case <-ctx.Done():
				final, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := s.checkpoint(final); err != nil {
					util.Error().Err(err).Msg("final WAL checkpoint failed")
				}
				cancel()
				return
			}
		}
	}()
	return done
}

func (s *SQLite) checkpoint(ctx context.Context) error {
	start := time.Now()
	var busy, logPages, checkpointed int
	err := s.db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &logPages, &checkpointed)
	if err != nil {
		return errors.Wrap(err, "passive checkpoint")
	}
	util.Debug().
		Int("busy", busy).
		Int("log", logPages).
		Int("checkpointed", checkpointed).
		Msg("PASSIVE checkpoint result")
	if logPages > 1000 || busy > 0 {
		util.Info().Msg("escalating to TRUNCATE checkpoint")
		err = s.db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &logPages, &checkpointed)
		if err != nil {
			return errors.Wrap(err, "truncate checkpoint")
		}
	}
	if err := s.verifyIntegrity(ctx); err != nil {
		util.Error().Err(err).Msg("CRITICAL: database integrity check failed after checkpoint")
		return err
	}
	util.Debug().Dur("duration", time.Since(start)).Msg("WAL checkpoint completed")
	return nil
}

func (s *SQLite) verifyIntegrity(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return errors.Wrap(err, "quick_check query failed")
	}
	if result != "ok" {
		return errors.Errorf("quick_check returned: %s", result)
	}
	return nil
}
