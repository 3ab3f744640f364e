// Package sla flags approval groups that are still pending past their due time.
package sla

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/supplyflow/pkg/models"
	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@every 1m"

// Approvals is the part of the approval manager the scanner drives.
type Approvals interface {
	Overdue(ctx context.Context, now time.Time) ([]*models.ApprovalGroup, error)
	MarkOverdue(ctx context.Context, groupID string, at time.Time) (bool, error)
}

// Scanner runs Scan on a cron schedule.
type Scanner struct {
	approvals Approvals
	schedule  string
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScanner validates schedule, a standard cron expression or descriptor
// such as "@every 1m". An empty schedule uses DefaultSchedule.
func NewScanner(approvals Approvals, schedule string, logger *slog.Logger) (*Scanner, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sla schedule %q: %w", schedule, err)
	}

	return &Scanner{
		approvals: approvals,
		schedule:  schedule,
		logger:    logger.With("module", "sla_scanner"),
		now:       time.Now,
	}, nil
}

func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := c.AddFunc(s.schedule, func() {
		_, _ = s.Scan(s.ctx)
	})
	if err != nil {
		s.cancel()

		return fmt.Errorf("failed to schedule sla scan: %w", err)
	}

	c.Start()
	s.cron = c

	s.logger.Info("sla scanner started", "schedule", s.schedule)

	return nil
}

// Stop cancels a running scan and waits for it to return.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.cron = nil

	s.logger.Info("sla scanner stopped")
}

// Scan marks every overdue pending group and returns how many it flagged.
// A failure on one group does not stop the others.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	now := s.now().UTC()

	groups, err := s.approvals.Overdue(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list overdue approval groups", "error", err)

		return 0, err
	}

	marked := 0

	for _, group := range groups {
		ok, err := s.approvals.MarkOverdue(ctx, group.ID, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to mark approval group overdue", "group_id", group.ID, "error", err)

			continue
		}

		if ok {
			marked++
		}
	}

	if marked > 0 {
		s.logger.InfoContext(ctx, "sla scan finished", "overdue", marked)
	}

	return marked, nil
}
