package reservation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/events"
)

type Service interface {
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Reservation, error)
	GetByID(ctx context.Context, actor auth.Actor, id string) (*Reservation, error)
	List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Reservation, int, error)
	SetStatus(ctx context.Context, actor auth.Actor, id string, req SetStatusRequest) (*Reservation, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
	// Rollback removes a reservation as compensation for a failed follow-up step
	// and frees its resource when nothing else holds it.
	Rollback(ctx context.Context, id string) error
}

type service struct {
	repo      Repository
	catalog   catalog.Store
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo Repository, store catalog.Store, publisher events.Publisher) Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &service{
		repo:      repo,
		catalog:   store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Reservation, error) {
	if actor.UserID == "" || !actor.Role.Valid() {
		return nil, ErrPermissionDenied
	}
	// 1. Validate payload
	if err := req.Validate(); err != nil {
		return nil, err
	}
	policy := PolicyFor(actor.Role)

	// 2. Resource must exist and be available
	res, err := s.catalog.Find(ctx, req.Resource)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if res.Status != catalog.StatusAvailable {
		return nil, ErrResourceUnavailable
	}

	// 3. Claim it. Losers of a concurrent race see false here.
	ok, err := s.catalog.CompareAndSetStatus(ctx, req.Resource, catalog.StatusAvailable, catalog.StatusReserved)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if !ok {
		return nil, ErrResourceUnavailable
	}

	// 4. A legacy lot and a grid cell on the same coordinate are one grave; claim both.
	twin, err := s.claimTwin(ctx, res)
	if err != nil {
		s.unclaim(ctx, req.Resource)
		return nil, err
	}

	// 5. Record the reservation
	now := s.now()
	r := &Reservation{
		Resource:  req.Resource,
		ActorRole: actor.Role,
		CreatedBy: actor.UserID,
		ClientID:  req.ClientID,
		Status:    policy.InitialStatus(),
		Client:    req.Client,
		Deceased:  req.Deceased,
		Payment:   req.Payment,
		Notes:     req.Notes,
	}
	if actor.Role == auth.RoleClient {
		r.ClientID = &actor.UserID
	}
	if policy.AutoApprove {
		r.ApprovedBy = &actor.UserID
		r.ApprovedAt = &now
	}

	if err := s.repo.Create(ctx, r); err != nil {
		if twin != nil {
			s.unclaim(ctx, twin.Ref)
		}
		if errors.Is(err, ErrActiveClaimExists) {
			// Another claim already holds the resource; it must stay reserved.
			slog.Error("catalog and ledger disagree on active claim", "resource", req.Resource.String(), "error", err)
			return nil, ErrResourceUnavailable.WithCause(err)
		}
		s.unclaim(ctx, req.Resource)
		return nil, ErrPersistence.WithCause(err)
	}

	slog.Info("reservation created", "id", r.ID, "resource", r.Resource.String(), "status", r.Status, "actor", actor.UserID)
	s.publish(ctx, events.ReservationCreated, r, actor.UserID)
	return r, nil
}

// twinOf returns the resource in the other grave catalog at the same
// garden-row-column coordinate as res, or nil when there is none.
func (s *service) twinOf(ctx context.Context, res *catalog.Resource) (*catalog.Resource, error) {
	switch res.Ref.Kind {
	case catalog.KindLegacyLot:
		if res.CoordinateID() == "" {
			return nil, nil
		}
		twin, err := s.catalog.Find(ctx, catalog.Ref{Kind: catalog.KindGardenGrid, ID: res.CoordinateID()})
		if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrUnknownCatalog) || errors.Is(err, catalog.ErrInvalidID) {
			return nil, nil
		}
		return twin, err
	case catalog.KindGardenGrid:
		lots, err := s.catalog.List(ctx, catalog.KindLegacyLot, catalog.Filter{Garden: res.Garden})
		if errors.Is(err, catalog.ErrUnknownCatalog) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		for _, lot := range lots {
			if lot.Row == res.Row && lot.Column == res.Column {
				return lot, nil
			}
		}
	}
	return nil, nil
}

// claimTwin moves the coordinate twin of res from available to reserved.
// A twin that is in any other status makes the grave unavailable.
func (s *service) claimTwin(ctx context.Context, res *catalog.Resource) (*catalog.Resource, error) {
	twin, err := s.twinOf(ctx, res)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if twin == nil {
		return nil, nil
	}
	ok, err := s.catalog.CompareAndSetStatus(ctx, twin.Ref, catalog.StatusAvailable, catalog.StatusReserved)
	if err != nil {
		return nil, mapCatalogErr(err)
	}
	if !ok {
		return nil, ErrResourceUnavailable
	}
	return twin, nil
}

// unclaim undoes the claim taken by Create when the ledger write failed.
func (s *service) unclaim(ctx context.Context, ref catalog.Ref) {
	ctx = context.WithoutCancel(ctx)
	ok, err := s.catalog.CompareAndSetStatus(ctx, ref, catalog.StatusReserved, catalog.StatusAvailable)
	if err != nil || !ok {
		slog.Error("failed to release resource after ledger failure", "resource", ref.String(), "released", ok, "error", err)
	}
}

func (s *service) GetByID(ctx context.Context, actor auth.Actor, id string) (*Reservation, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !PolicyFor(actor.Role).CanReview && !r.OwnedBy(actor.UserID) {
		return nil, ErrPermissionDenied
	}
	return r, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]*Reservation, int, error) {
	// Clients only ever see their own reservations
	if !PolicyFor(actor.Role).CanReview {
		filter.OwnerID = actor.UserID
	}
	return s.repo.List(ctx, filter)
}

func (s *service) SetStatus(ctx context.Context, actor auth.Actor, id string, req SetStatusRequest) (*Reservation, error) {
	if !req.Status.Valid() {
		return nil, invalid("unknown status %q", req.Status)
	}
	policy := PolicyFor(actor.Role)

	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Permission: reviewers may do anything the lifecycle allows;
	// clients may only cancel their own pending reservations.
	if !policy.CanReview {
		if req.Status != StatusCancelled || !cur.OwnedBy(actor.UserID) || cur.Status != StatusPending {
			return nil, ErrPermissionDenied
		}
	}

	if !CanTransition(cur.Status, req.Status) {
		return nil, ErrInvalidTransition
	}
	if req.Status == StatusCompleted {
		if !cur.ClientAuthored() {
			return nil, ErrInvalidTransition
		}
		if !cur.Confirmed() {
			return nil, ErrNotConfirmed
		}
	}

	now := s.now()
	change := StatusChange{Status: req.Status, At: now}
	switch req.Status {
	case StatusApproved:
		change.ApprovedBy = &actor.UserID
		change.ApprovedAt = &now
	case StatusRejected:
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			return nil, ErrReasonRequired
		}
		change.RejectionReason = &reason
	}

	updated, err := s.repo.UpdateStatus(ctx, id, cur.Status, change)
	if err != nil {
		return nil, err
	}

	if updated.Status == StatusRejected || updated.Status == StatusCancelled {
		if err := s.releaseIfUnclaimed(ctx, updated.Resource, updated.ID); err != nil {
			// The ledger change is committed; the resource stays reserved until an operator frees it.
			slog.Error("release guard failed", "reservation_id", updated.ID, "resource", updated.Resource.String(), "error", err)
		}
	}

	slog.Info("reservation status changed", "id", updated.ID, "from", cur.Status, "to", updated.Status, "actor", actor.UserID)
	s.publish(ctx, eventFor(updated.Status), updated, actor.UserID)
	return updated, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !PolicyFor(actor.Role).CanHardDelete {
		return ErrPermissionDenied
	}
	if err := s.remove(ctx, id, actor.UserID); err != nil {
		return err
	}
	slog.Info("reservation deleted", "id", id, "actor", actor.UserID)
	return nil
}

func (s *service) Rollback(ctx context.Context, id string) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.remove(ctx, id, auth.SystemActor.UserID); err != nil {
		return err
	}
	slog.Warn("reservation rolled back", "id", id)
	return nil
}

// remove deletes the record first, then frees the resource if the record was holding it.
func (s *service) remove(ctx context.Context, id, actorID string) error {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	status, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	r.Status = status

	if status.Holding() {
		if err := s.releaseIfUnclaimed(ctx, r.Resource, r.ID); err != nil {
			slog.Error("release guard failed", "reservation_id", r.ID, "resource", r.Resource.String(), "error", err)
		}
	}
	s.publish(ctx, events.ReservationDeleted, r, actorID)
	return nil
}

// releaseIfUnclaimed frees ref and its coordinate twin unless a reservation
// other than excludeID still holds either of them.
func (s *service) releaseIfUnclaimed(ctx context.Context, ref catalog.Ref, excludeID string) error {
	refs := []catalog.Ref{ref}
	res, err := s.catalog.Find(ctx, ref)
	switch {
	case err == nil:
		twin, err := s.twinOf(ctx, res)
		if err != nil {
			return err
		}
		if twin != nil {
			refs = append(refs, twin.Ref)
		}
	case !errors.Is(err, catalog.ErrNotFound):
		return err
	}

	for _, r := range refs {
		holders, err := s.repo.ListByResource(ctx, r, HoldingStatuses)
		if err != nil {
			return err
		}
		for _, h := range holders {
			if h.ID != excludeID {
				slog.Info("resource still held by another reservation", "resource", r.String(), "holder", h.ID, "status", h.Status)
				return nil
			}
		}
	}

	for _, r := range refs {
		ok, err := s.catalog.CompareAndSetStatus(ctx, r, catalog.StatusReserved, catalog.StatusAvailable)
		if err != nil {
			return err
		}
		if !ok {
			// Someone moved the resource out of reservation control (e.g. maintenance); leave it.
			slog.Warn("resource was not reserved at release", "resource", r.String())
		}
	}
	return nil
}

func (s *service) publish(ctx context.Context, t events.Type, r *Reservation, actorID string) {
	e := NewEvent(t, r, actorID, s.now())
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		slog.Warn("publish lifecycle event failed", "type", t, "reservation_id", r.ID, "error", err)
	}
}

// NewEvent builds the lifecycle event for r.
func NewEvent(t events.Type, r *Reservation, actorID string, at time.Time) events.Event {
	e := events.Event{
		Type:          t,
		ReservationID: r.ID,
		Resource:      r.Resource,
		Status:        string(r.Status),
		ActorID:       actorID,
		ClientName:    r.Client.Name,
		ClientEmail:   r.Client.Email,
		ClientPhone:   r.Client.Phone,
		OccurredAt:    at,
	}
	if r.RejectionReason != nil {
		e.RejectionReason = *r.RejectionReason
	}
	return e
}

func eventFor(s Status) events.Type {
	switch s {
	case StatusApproved:
		return events.ReservationApproved
	case StatusRejected:
		return events.ReservationRejected
	case StatusCancelled:
		return events.ReservationCancelled
	case StatusCompleted:
		return events.ReservationCompleted
	}
	return events.ReservationCreated
}

func mapCatalogErr(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return ErrResourceNotFound
	case errors.Is(err, catalog.ErrUnknownCatalog), errors.Is(err, catalog.ErrInvalidID):
		return err
	default:
		return ErrPersistence.WithCause(err)
	}
}
