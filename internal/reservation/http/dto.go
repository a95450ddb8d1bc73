package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/completion"
	"github.com/nekogravitycat/plot-booking-backend/internal/file"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
)

const dateLayout = "2006-01-02"

// ListReservationsRequest defines query parameters for listing reservations.
type ListReservationsRequest struct {
	request.ListParams
	Status     string `form:"status" binding:"omitempty,oneof=pending approved rejected cancelled completed"`
	Kind       string `form:"kind" binding:"omitempty,oneof=legacy-lot garden-grid columbarium"`
	ResourceID string `form:"resource_id"`
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=created_at updated_at status"`
}

func (r *ListReservationsRequest) Filter() reservation.Filter {
	r.Normalize()
	return reservation.Filter{
		Status:     reservation.Status(r.Status),
		Kind:       catalog.Kind(r.Kind),
		ResourceID: r.ResourceID,
		Page:       r.Page,
		PageSize:   r.PageSize,
		SortBy:     r.SortBy,
		SortOrder:  r.SortOrder,
	}
}

type ResourceRefBody struct {
	Kind string `json:"kind" binding:"required"`
	ID   string `json:"id" binding:"required"`
}

type ClientBody struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type DeceasedBody struct {
	Name         string `json:"name"`
	DateOfBirth  string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	DateOfDeath  string `json:"date_of_death" binding:"omitempty,datetime=2006-01-02"`
	Relationship string `json:"relationship"`
}

type PaymentBody struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" binding:"required,oneof=cash bank_transfer gcash card"`
}

// CreateReservationRequest is the JSON body of a new reservation. The with-proof
// endpoint takes the same document in its "reservation" form field.
type CreateReservationRequest struct {
	Resource ResourceRefBody `json:"resource" binding:"required"`
	ClientID *string         `json:"client_id" binding:"omitempty,uuid"`
	Client   ClientBody      `json:"client" binding:"required"`
	Deceased DeceasedBody    `json:"deceased"`
	Payment  PaymentBody     `json:"payment" binding:"required"`
	Notes    string          `json:"notes" binding:"max=2000"`
}

func (r *CreateReservationRequest) ToDomain() (reservation.CreateRequest, error) {
	ref, err := catalog.NewRef(r.Resource.Kind, r.Resource.ID)
	if err != nil {
		return reservation.CreateRequest{}, err
	}
	dob, err := parseDate(r.Deceased.DateOfBirth)
	if err != nil {
		return reservation.CreateRequest{}, err
	}
	dod, err := parseDate(r.Deceased.DateOfDeath)
	if err != nil {
		return reservation.CreateRequest{}, err
	}

	return reservation.CreateRequest{
		Resource: ref,
		ClientID: r.ClientID,
		Client: reservation.Client{
			Name:    r.Client.Name,
			Email:   r.Client.Email,
			Phone:   r.Client.Phone,
			Address: r.Client.Address,
		},
		Deceased: reservation.Deceased{
			Name:         r.Deceased.Name,
			DateOfBirth:  dob,
			DateOfDeath:  dod,
			Relationship: r.Deceased.Relationship,
		},
		Payment: reservation.Payment{
			Amount: r.Payment.Amount,
			Method: reservation.PaymentMethod(r.Payment.Method),
		},
		Notes: r.Notes,
	}, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, reservation.ErrInvalidInput
	}
	return &t, nil
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected cancelled completed"`
	Reason string `json:"reason" binding:"max=1000"`
}

type ReservationResponse struct {
	ID                 string          `json:"id"`
	Resource           catalog.Ref     `json:"resource"`
	Status             string          `json:"status"`
	ActorRole          string          `json:"actor_role"`
	CreatedBy          string          `json:"created_by"`
	ClientID           *string         `json:"client_id"`
	Client             ClientBody      `json:"client"`
	Deceased           DeceasedBody    `json:"deceased"`
	Payment            PaymentResponse `json:"payment"`
	Notes              string          `json:"notes,omitempty"`
	ApprovedBy         *string         `json:"approved_by"`
	ApprovedAt         *time.Time      `json:"approved_at"`
	RejectionReason    *string         `json:"rejection_reason"`
	ConfirmationSentAt *time.Time      `json:"confirmation_sent_at"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type PaymentResponse struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	ProofFileID *string         `json:"proof_file_id"`
	ProofURL    *string         `json:"proof_url"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	var proofURL *string
	if r.Payment.ProofFileID != nil {
		u := file.FileURL(*r.Payment.ProofFileID)
		proofURL = &u
	}
	return ReservationResponse{
		ID:        r.ID,
		Resource:  r.Resource,
		Status:    string(r.Status),
		ActorRole: string(r.ActorRole),
		CreatedBy: r.CreatedBy,
		ClientID:  r.ClientID,
		Client: ClientBody{
			Name:    r.Client.Name,
			Email:   r.Client.Email,
			Phone:   r.Client.Phone,
			Address: r.Client.Address,
		},
		Deceased: DeceasedBody{
			Name:         r.Deceased.Name,
			DateOfBirth:  formatDate(r.Deceased.DateOfBirth),
			DateOfDeath:  formatDate(r.Deceased.DateOfDeath),
			Relationship: r.Deceased.Relationship,
		},
		Payment: PaymentResponse{
			Amount:      r.Payment.Amount,
			Method:      string(r.Payment.Method),
			ProofFileID: r.Payment.ProofFileID,
			ProofURL:    proofURL,
		},
		Notes:              r.Notes,
		ApprovedBy:         r.ApprovedBy,
		ApprovedAt:         r.ApprovedAt,
		RejectionReason:    r.RejectionReason,
		ConfirmationSentAt: r.ConfirmationSentAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// ConfirmationResponse is returned once proof is attached and the client notified.
type ConfirmationResponse struct {
	Message     string              `json:"message"`
	Reservation ReservationResponse `json:"reservation"`
	ConfirmedAt time.Time           `json:"confirmed_at"`
}

func NewConfirmationResponse(c *completion.Confirmation) ConfirmationResponse {
	return ConfirmationResponse{
		Message:     "proof of payment received, reservation is pending review",
		Reservation: NewReservationResponse(c.Reservation),
		ConfirmedAt: c.ConfirmedAt,
	}
}
