// Package expiry cancels pending reservations that were never confirmed, so
// abandoned bookings do not hold a resource forever.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
)

const defaultBatchSize = 100

// StaleLister finds pending reservations with no confirmation sent.
type StaleLister interface {
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*reservation.Reservation, error)
}

// Result summarizes one sweep.
type Result struct {
	Expired []string `json:"expired"`
	Skipped []string `json:"skipped"`
	DryRun  bool     `json:"dry_run"`
}

type Sweeper struct {
	ledger       StaleLister
	reservations reservation.Service
	ttl          time.Duration
	batchSize    int
	now          func() time.Time
}

func NewSweeper(ledger StaleLister, reservations reservation.Service, ttl time.Duration) *Sweeper {
	return &Sweeper{
		ledger:       ledger,
		reservations: reservations,
		ttl:          ttl,
		batchSize:    defaultBatchSize,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run expires everything older than the configured TTL.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	return s.Expire(ctx, s.ttl, false)
}

// Expire cancels pending reservations created more than olderThan ago. With
// dryRun set it only reports what it would cancel.
func (s *Sweeper) Expire(ctx context.Context, olderThan time.Duration, dryRun bool) (Result, error) {
	if olderThan <= 0 {
		return Result{}, fmt.Errorf("expiry age must be positive, got %s", olderThan)
	}
	before := s.now().Add(-olderThan)
	res := Result{DryRun: dryRun}

	stale, err := s.ledger.ListStalePending(ctx, before, s.batchSize)
	if err != nil {
		return res, fmt.Errorf("list stale reservations: %w", err)
	}

	for _, r := range stale {
		if dryRun {
			res.Expired = append(res.Expired, r.ID)
			continue
		}
		_, err := s.reservations.SetStatus(ctx, auth.SystemActor, r.ID, reservation.SetStatusRequest{
			Status: reservation.StatusCancelled,
			Reason: "expired without confirmation",
		})
		switch {
		case err == nil:
			res.Expired = append(res.Expired, r.ID)
		case errors.Is(err, reservation.ErrStaleStatus),
			errors.Is(err, reservation.ErrInvalidTransition),
			errors.Is(err, reservation.ErrNotFound):
			// Reviewed or removed since it was listed
			res.Skipped = append(res.Skipped, r.ID)
		default:
			return res, fmt.Errorf("expire reservation %s: %w", r.ID, err)
		}
	}

	if len(res.Expired) > 0 || len(res.Skipped) > 0 {
		slog.Info("pending reservations expired", "expired", len(res.Expired), "skipped", len(res.Skipped), "dry_run", dryRun, "older_than", olderThan)
	}
	return res, nil
}

// Schedule runs the sweeper on schedule (standard cron syntax or descriptors such
// as "@every 15m"). The caller stops the returned scheduler.
func Schedule(ctx context.Context, schedule string, s *Sweeper) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.Run(ctx); err != nil {
			slog.Error("pending expiry sweep failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
