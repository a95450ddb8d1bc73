package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
)

// MemoryLedger is a reservation.Repository that enforces the same
// one-active-claim-per-resource rule as the partial unique index.
type MemoryLedger struct {
	mu        sync.Mutex
	records   map[string]*reservation.Reservation
	createErr error
	now       func() time.Time
}

var _ reservation.Repository = (*MemoryLedger)(nil)

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: map[string]*reservation.Reservation{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FailCreate makes Create return err until cleared with nil.
func (l *MemoryLedger) FailCreate(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.createErr = err
}

// Put stores r as is, bypassing the claim rule. Used to seed fixtures.
func (l *MemoryLedger) Put(r *reservation.Reservation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *r
	if cp.ID == "" {
		cp.ID = uuid.NewString()
		r.ID = cp.ID
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = l.now()
	}
	l.records[cp.ID] = &cp
}

// Len returns how many records exist.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// ActiveOn counts pending/approved reservations on ref.
func (l *MemoryLedger) ActiveOn(ref catalog.Ref) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.Resource == ref && isActive(r.Status) {
			n++
		}
	}
	return n
}

func isActive(s reservation.Status) bool {
	return s == reservation.StatusPending || s == reservation.StatusApproved
}

func copyOf(r *reservation.Reservation) *reservation.Reservation {
	cp := *r
	return &cp
}

func (l *MemoryLedger) Create(_ context.Context, r *reservation.Reservation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	if isActive(r.Status) {
		for _, existing := range l.records {
			if existing.Resource == r.Resource && isActive(existing.Status) {
				return reservation.ErrActiveClaimExists
			}
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := l.now()
	r.CreatedAt, r.UpdatedAt = now, now
	l.records[r.ID] = copyOf(r)
	return nil
}

func (l *MemoryLedger) GetByID(_ context.Context, id string) (*reservation.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return copyOf(r), nil
}

func (l *MemoryLedger) sorted(match func(*reservation.Reservation) bool) []*reservation.Reservation {
	var out []*reservation.Reservation
	for _, r := range l.records {
		if match(r) {
			out = append(out, copyOf(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (l *MemoryLedger) List(_ context.Context, f reservation.Filter) ([]*reservation.Reservation, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := l.sorted(func(r *reservation.Reservation) bool {
		if f.Status != "" && r.Status != f.Status {
			return false
		}
		if f.Kind != "" && r.Resource.Kind != f.Kind {
			return false
		}
		if f.ResourceID != "" && r.Resource.ID != f.ResourceID {
			return false
		}
		if f.OwnerID != "" && !r.OwnedBy(f.OwnerID) {
			return false
		}
		return true
	})
	if f.SortOrder != "asc" {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := min(start+size, len(all))
	return all[start:end], len(all), nil
}

func (l *MemoryLedger) ListByResource(_ context.Context, ref catalog.Ref, statuses []reservation.Status) ([]*reservation.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sorted(func(r *reservation.Reservation) bool {
		if r.Resource != ref {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if r.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (l *MemoryLedger) ListActive(_ context.Context, kinds ...catalog.Kind) ([]*reservation.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sorted(func(r *reservation.Reservation) bool {
		if !isActive(r.Status) {
			return false
		}
		if len(kinds) == 0 {
			return true
		}
		for _, k := range kinds {
			if r.Resource.Kind == k {
				return true
			}
		}
		return false
	}), nil
}

func (l *MemoryLedger) ListStalePending(_ context.Context, before time.Time, limit int) ([]*reservation.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.sorted(func(r *reservation.Reservation) bool {
		return r.Status == reservation.StatusPending && r.ConfirmationSentAt == nil && r.CreatedAt.Before(before)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *MemoryLedger) UpdateStatus(_ context.Context, id string, expected reservation.Status, change reservation.StatusChange) (*reservation.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	if r.Status != expected {
		return nil, reservation.ErrStaleStatus
	}
	r.Status = change.Status
	r.UpdatedAt = change.At
	if change.ApprovedBy != nil {
		r.ApprovedBy = change.ApprovedBy
	}
	if change.ApprovedAt != nil {
		r.ApprovedAt = change.ApprovedAt
	}
	if change.RejectionReason != nil {
		r.RejectionReason = change.RejectionReason
	}
	return copyOf(r), nil
}

func (l *MemoryLedger) AttachProof(_ context.Context, id, fileID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	if !ok {
		return reservation.ErrNotFound
	}
	if r.Status != reservation.StatusPending || r.Payment.ProofFileID != nil || r.ConfirmationSentAt != nil {
		return reservation.ErrStaleStatus
	}
	r.Payment.ProofFileID = &fileID
	return nil
}

func (l *MemoryLedger) MarkConfirmationSent(_ context.Context, id string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	if !ok {
		return reservation.ErrNotFound
	}
	if r.Status != reservation.StatusPending && r.Status != reservation.StatusApproved {
		return reservation.ErrStaleStatus
	}
	r.ConfirmationSentAt = &at
	return nil
}

func (l *MemoryLedger) Delete(_ context.Context, id string) (reservation.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[id]
	if !ok {
		return "", reservation.ErrNotFound
	}
	delete(l.records, id)
	return r.Status, nil
}
