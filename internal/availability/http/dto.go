package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/plot-booking-backend/internal/availability"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
)

type ListGravesRequest struct {
	Garden string `form:"garden" binding:"omitempty,oneof=A B C D a b c d"`
	Status string `form:"status" binding:"omitempty,oneof=available reserved occupied maintenance unavailable"`
}

type ListColumbariumRequest struct {
	Building string `form:"building" binding:"omitempty,alphanum,max=8"`
	Status   string `form:"status" binding:"omitempty,oneof=available reserved occupied maintenance unavailable"`
}

type ResourceStatusRequest struct {
	Kind string `uri:"kind" binding:"required"`
	ID   string `uri:"id" binding:"required"`
}

// EntryResponse is the public view of a resource. It never exposes who holds a claim.
type EntryResponse struct {
	Kind         string          `json:"kind"`
	ID           string          `json:"id"`
	CoordinateID string          `json:"coordinate_id,omitempty"`
	Status       string          `json:"status"`
	Price        decimal.Decimal `json:"price"`
	SizeSqm      decimal.Decimal `json:"size_sqm"`
	Garden       string          `json:"garden,omitempty"`
	Row          int             `json:"row,omitempty"`
	Building     string          `json:"building,omitempty"`
	Level        int             `json:"level,omitempty"`
	Column       int             `json:"column"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func NewEntryResponse(e *availability.Entry) EntryResponse {
	return EntryResponse{
		Kind:         string(e.Ref.Kind),
		ID:           e.Ref.ID,
		CoordinateID: e.CoordinateID,
		Status:       string(e.Status),
		Price:        e.Price,
		SizeSqm:      e.SizeSqm,
		Garden:       e.Garden,
		Row:          e.Row,
		Building:     e.Building,
		Level:        e.Level,
		Column:       e.Column,
		UpdatedAt:    e.UpdatedAt,
	}
}

func newEntryResponses(entries []*availability.Entry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = NewEntryResponse(e)
	}
	return out
}

// StatusResponse answers "can this resource be booked right now".
type StatusResponse struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Status    string `json:"status"`
	Available bool   `json:"available"`
}

func NewStatusResponse(e *availability.Entry) StatusResponse {
	return StatusResponse{
		Kind:      string(e.Ref.Kind),
		ID:        e.Ref.ID,
		Status:    string(e.Status),
		Available: e.Status == catalog.StatusAvailable,
	}
}

type ListResponse struct {
	Items []EntryResponse `json:"items"`
	Total int             `json:"total"`
}
