package reservation

import (
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/apperror"
)

// CreateRequest is the payload of a new reservation.
type CreateRequest struct {
	Resource catalog.Ref
	ClientID *string
	Client   Client
	Deceased Deceased
	Payment  Payment
	Notes    string
}

// SetStatusRequest is the payload of a status transition.
type SetStatusRequest struct {
	Status Status
	Reason string
}

func invalid(format string, args ...any) error {
	return apperror.Wrap(ErrInvalidInput, http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// Validate checks the payload. It has no side effects.
func (r *CreateRequest) Validate() error {
	if !r.Resource.Kind.Valid() {
		return catalog.ErrUnknownCatalog
	}
	if strings.TrimSpace(r.Resource.ID) == "" {
		return invalid("resource id is required")
	}
	if strings.TrimSpace(r.Client.Name) == "" {
		return invalid("client name is required")
	}
	if _, err := mail.ParseAddress(r.Client.Email); err != nil {
		return invalid("client email is invalid")
	}
	if !r.Payment.Method.Valid() {
		return invalid("payment method %q is not supported", r.Payment.Method)
	}
	if r.Payment.Amount.LessThan(decimal.Zero) {
		return invalid("payment amount cannot be negative")
	}
	if r.Deceased.DateOfBirth != nil && r.Deceased.DateOfDeath != nil &&
		r.Deceased.DateOfDeath.Before(*r.Deceased.DateOfBirth) {
		return invalid("date of death is before date of birth")
	}
	return nil
}
