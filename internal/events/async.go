package events

import (
	"context"
	"log/slog"
	"sync"
)

// Async publishes on a background goroutine so slow subscribers (mail, broker)
// never hold up the request that committed the transition. Wait blocks until
// in-flight publishes finish, for graceful shutdown.
type Async struct {
	next Publisher
	wg   sync.WaitGroup
}

func NewAsync(next Publisher) *Async {
	return &Async{next: next}
}

func (a *Async) Publish(ctx context.Context, e Event) error {
	ctx = context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.next.Publish(ctx, e); err != nil {
			slog.Warn("async event delivery failed", "type", e.Type, "reservation_id", e.ReservationID, "error", err)
		}
	}()
	return nil
}

func (a *Async) Wait() {
	a.wg.Wait()
}
