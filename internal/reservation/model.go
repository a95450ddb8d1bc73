package reservation

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, "reservation not found")
	ErrResourceNotFound    = apperror.New(http.StatusNotFound, "resource not found")
	ErrResourceUnavailable = apperror.New(http.StatusConflict, "resource is not available")
	ErrActiveClaimExists   = apperror.New(http.StatusConflict, "resource already has an active reservation")
	ErrStaleStatus         = apperror.New(http.StatusConflict, "reservation status changed, reload and retry")
	ErrInvalidTransition   = apperror.New(http.StatusConflict, "status transition not allowed")
	ErrNotConfirmed        = apperror.New(http.StatusConflict, "reservation has no proof of payment with a delivered confirmation")
	ErrInvalidInput        = apperror.New(http.StatusBadRequest, "invalid reservation request")
	ErrReasonRequired      = apperror.New(http.StatusBadRequest, "rejection reason is required")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, "permission denied")
	ErrPersistence         = apperror.New(http.StatusInternalServerError, "failed to persist reservation")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ActiveStatuses are the statuses covered by the single-claim rule.
var ActiveStatuses = []Status{StatusPending, StatusApproved}

// HoldingStatuses keep a resource reserved. A completed reservation still holds its plot.
var HoldingStatuses = []Status{StatusPending, StatusApproved, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func (s Status) Holding() bool {
	return s == StatusPending || s == StatusApproved || s == StatusCompleted
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCompleted, StatusCancelled, StatusRejected},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentGCash        PaymentMethod = "gcash"
	PaymentCard         PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentBankTransfer, PaymentGCash, PaymentCard:
		return true
	}
	return false
}

type Client struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type Deceased struct {
	Name         string
	DateOfBirth  *time.Time
	DateOfDeath  *time.Time
	Relationship string
}

type Payment struct {
	Amount      decimal.Decimal
	Method      PaymentMethod
	ProofFileID *string
}

// Reservation is a claim on one catalog resource. It references the resource, never owns it.
type Reservation struct {
	ID                 string
	Resource           catalog.Ref
	ActorRole          auth.Role
	CreatedBy          string
	ClientID           *string
	Status             Status
	Client             Client
	Deceased           Deceased
	Payment            Payment
	Notes              string
	ApprovedBy         *string
	ApprovedAt         *time.Time
	RejectionReason    *string
	ConfirmationSentAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ClientAuthored reports whether a client created the reservation through self-service.
func (r *Reservation) ClientAuthored() bool {
	return r.ActorRole == auth.RoleClient
}

// Confirmed reports whether a proof is attached and its confirmation was delivered.
func (r *Reservation) Confirmed() bool {
	return r.Payment.ProofFileID != nil && r.ConfirmationSentAt != nil
}

// OwnedBy reports whether userID created the reservation or is its recorded client.
func (r *Reservation) OwnedBy(userID string) bool {
	if userID == "" {
		return false
	}
	return r.CreatedBy == userID || (r.ClientID != nil && *r.ClientID == userID)
}

// StatusChange is the set of columns written by a conditional status update.
type StatusChange struct {
	Status          Status
	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason *string
	At              time.Time
}

// Filter defines parameters for listing reservations.
type Filter struct {
	Status     Status
	Kind       catalog.Kind
	ResourceID string
	OwnerID    string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
