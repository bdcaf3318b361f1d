package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the outbox dispatcher and the tour reminder on cron
// schedules.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher *OutboxDispatcher
	reminder   *TourReminder
}

func NewScheduler(dispatcher *OutboxDispatcher, reminder *TourReminder) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		dispatcher: dispatcher,
		reminder:   reminder,
	}
}

// Start registers both jobs and begins the cron loop.
func (s *Scheduler) Start(ctx context.Context, outboxSpec, reminderSpec string) error {
	if _, err := s.cron.AddFunc(outboxSpec, func() {
		if n, err := s.dispatcher.RunOnce(ctx); err != nil {
			log.Printf("outbox dispatch: %v", err)
		} else if n > 0 {
			log.Printf("outbox dispatched %d message(s)", n)
		}
	}); err != nil {
		return fmt.Errorf("workers: outbox cron %q: %w", outboxSpec, err)
	}

	if _, err := s.cron.AddFunc(reminderSpec, func() {
		if n, err := s.reminder.RunOnce(ctx); err != nil {
			log.Printf("tour reminder: %v", err)
		} else if n > 0 {
			log.Printf("tour reminder sent for %d tour(s)", n)
		}
	}); err != nil {
		return fmt.Errorf("workers: reminder cron %q: %w", reminderSpec, err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop; running jobs finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
