// Package completion finalizes client reservations once proof of payment has
// been stored and the client has been told it was received. When the
// confirmation cannot be delivered the reservation is rolled back and the
// stored proof removed, so the client never sees a half-finished booking.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/events"
	"github.com/nekogravitycat/plot-booking-backend/internal/file"
	"github.com/nekogravitycat/plot-booking-backend/internal/notify"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
)

var (
	ErrDeliveryFailed    = apperror.New(http.StatusServiceUnavailable, "confirmation could not be delivered, please submit your reservation again")
	ErrNotAwaitingProof  = apperror.New(http.StatusConflict, "reservation is not awaiting proof of payment")
	ErrClaimLost         = apperror.New(http.StatusConflict, "reservation no longer holds its resource")
	ErrProofRequired     = apperror.New(http.StatusBadRequest, "proof of payment is required")
	ErrClientSubmitsOnly = apperror.New(http.StatusForbidden, "only clients submit reservations with proof of payment")
)

// ArtifactStore keeps uploaded proof files. file.Service satisfies it.
type ArtifactStore interface {
	Upload(ctx context.Context, in file.UploadInput) (*file.File, error)
	Delete(ctx context.Context, id string) error
}

// Confirmation is the result of a successful finalization.
type Confirmation struct {
	Reservation *reservation.Reservation
	ProofFileID string
	ConfirmedAt time.Time
}

type Gate struct {
	reservations reservation.Service
	ledger       reservation.Repository
	catalog      catalog.Store
	artifacts    ArtifactStore
	notifier     notify.Notifier
	publisher    events.Publisher
	timeout      time.Duration
	now          func() time.Time
}

// NewGate builds a gate. timeout bounds each confirmation delivery.
func NewGate(
	reservations reservation.Service,
	ledger reservation.Repository,
	store catalog.Store,
	artifacts ArtifactStore,
	notifier notify.Notifier,
	publisher events.Publisher,
	timeout time.Duration,
) *Gate {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Gate{
		reservations: reservations,
		ledger:       ledger,
		catalog:      store,
		artifacts:    artifacts,
		notifier:     notifier,
		publisher:    publisher,
		timeout:      timeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// AttachProofAndFinalize attaches an already stored proof file to a pending
// client reservation and sends the confirmation. On delivery failure the
// reservation and the proof file are removed and ErrDeliveryFailed is returned.
// Rejections before the proof is attached leave both untouched.
func (g *Gate) AttachProofAndFinalize(ctx context.Context, actor auth.Actor, id, fileID string) (*Confirmation, error) {
	r, err := g.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reservation.PolicyFor(actor.Role).CanReview && !r.OwnedBy(actor.UserID) {
		return nil, reservation.ErrPermissionDenied
	}
	if r.Status != reservation.StatusPending || !r.ClientAuthored() {
		return nil, ErrNotAwaitingProof
	}
	// A reservation takes one proof. Compensating a second one would undo a delivered confirmation.
	if r.Payment.ProofFileID != nil || r.ConfirmationSentAt != nil {
		return nil, ErrNotAwaitingProof
	}
	if err := g.checkClaim(ctx, r); err != nil {
		return nil, err
	}
	return g.finalize(ctx, r, fileID)
}

// SubmitWithProof stores the proof, creates the reservation and finalizes it
// in one call. Any failure after the proof is stored removes it again.
func (g *Gate) SubmitWithProof(ctx context.Context, actor auth.Actor, req reservation.CreateRequest, proof file.UploadInput) (*Confirmation, error) {
	if actor.Role != auth.RoleClient {
		return nil, ErrClientSubmitsOnly
	}
	if proof.Content == nil {
		return nil, ErrProofRequired
	}
	// Validate before storing anything
	if err := req.Validate(); err != nil {
		return nil, err
	}

	proof.UserID = actor.UserID
	stored, err := g.artifacts.Upload(ctx, proof)
	if err != nil {
		return nil, err
	}

	r, err := g.reservations.Create(ctx, actor, req)
	if err != nil {
		g.deleteArtifact(ctx, stored.ID)
		return nil, err
	}

	conf, err := g.finalize(ctx, r, stored.ID)
	if err != nil && !errors.Is(err, ErrDeliveryFailed) {
		// finalize only compensates delivery failures; the reservation is ours to undo here.
		g.compensate(ctx, r, stored.ID)
	}
	return conf, err
}

// checkClaim is the minimal "still claimed" check made before any slow I/O.
func (g *Gate) checkClaim(ctx context.Context, r *reservation.Reservation) error {
	res, err := g.catalog.Find(ctx, r.Resource)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return ErrClaimLost
		}
		return err
	}
	if res.Status != catalog.StatusReserved {
		return ErrClaimLost
	}
	return nil
}

func (g *Gate) finalize(ctx context.Context, r *reservation.Reservation, fileID string) (*Confirmation, error) {
	// 1. Attach
	if err := g.ledger.AttachProof(ctx, r.ID, fileID); err != nil {
		if errors.Is(err, reservation.ErrStaleStatus) {
			return nil, ErrNotAwaitingProof
		}
		return nil, err
	}
	r.Payment.ProofFileID = &fileID

	// 2. Deliver
	if err := g.deliver(ctx, r); err != nil {
		slog.Warn("confirmation delivery failed, rolling back", "reservation_id", r.ID, "resource", r.Resource.String(), "error", err)
		g.compensate(ctx, r, fileID)
		return nil, ErrDeliveryFailed.WithCause(err)
	}

	// 3. Record
	at := g.now()
	if err := g.ledger.MarkConfirmationSent(ctx, r.ID, at); err != nil {
		// The client already has the confirmation; keep the reservation.
		if errors.Is(err, reservation.ErrStaleStatus) {
			slog.Warn("reservation closed while confirmation was in flight", "reservation_id", r.ID)
		} else {
			slog.Error("failed to record confirmation", "reservation_id", r.ID, "error", err)
		}
	} else {
		r.ConfirmationSentAt = &at
	}

	if err := g.publisher.Publish(context.WithoutCancel(ctx), reservation.NewEvent(events.ReservationConfirmed, r, r.CreatedBy, at)); err != nil {
		slog.Warn("publish lifecycle event failed", "type", events.ReservationConfirmed, "reservation_id", r.ID, "error", err)
	}

	slog.Info("reservation confirmed", "id", r.ID, "resource", r.Resource.String(), "proof_file_id", fileID)
	return &Confirmation{Reservation: r, ProofFileID: fileID, ConfirmedAt: at}, nil
}

func (g *Gate) deliver(ctx context.Context, r *reservation.Reservation) error {
	msg, err := notify.Render(notify.TemplateReceived, notify.TemplateData{
		ClientName:    r.Client.Name,
		ClientEmail:   r.Client.Email,
		ClientPhone:   r.Client.Phone,
		ReservationID: r.ID,
		Resource:      notify.ResourceLabel(r.Resource),
		Status:        string(r.Status),
		Amount:        r.Payment.Amount.StringFixed(2),
		PaymentMethod: string(r.Payment.Method),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", notify.ErrDeliveryFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.notifier.Send(ctx, msg)
}

// compensate removes the reservation (freeing its resource when nothing else
// holds it) and then the proof file. It runs to completion even if the caller
// has gone away.
func (g *Gate) compensate(ctx context.Context, r *reservation.Reservation, fileID string) {
	ctx = context.WithoutCancel(ctx)
	if err := g.reservations.Rollback(ctx, r.ID); err != nil && !errors.Is(err, reservation.ErrNotFound) {
		slog.Error("rollback failed", "reservation_id", r.ID, "error", err)
	}
	g.deleteArtifact(ctx, fileID)
}

func (g *Gate) deleteArtifact(ctx context.Context, fileID string) {
	if err := g.artifacts.Delete(context.WithoutCancel(ctx), fileID); err != nil {
		slog.Error("failed to delete proof file", "file_id", fileID, "error", err)
	}
}
