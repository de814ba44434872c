// Package scheduler provides cron-based background jobs for the bot.
//
// Its main consumer is the hourly sweep that purges expired clarification
// sub-dialogs from the store.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/qaaqit/Qaaq1234-sub001/internal/store"
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// AddClarificationSweep registers an hourly job that deletes expired
// clarification entries. Expiry is also checked lazily on resolution, so the
// sweep only reclaims storage for users who never replied.
func (s *Scheduler) AddClarificationSweep(st store.Store) error {
	return s.AddJob("0 * * * *", func() {
		n, err := st.DeleteExpiredClarifications(time.Now())
		if err != nil {
			slog.Error("Clarification sweep failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("Clarification sweep removed expired entries", "count", n)
		}
	})
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
