// Package availability is the read side: it merges the resource catalogs and
// overlays active reservations to show what can still be booked. It never
// writes to a catalog.
package availability

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
)

// Entry is one resource as shown to browsing clients.
type Entry struct {
	Ref          catalog.Ref     `json:"ref"`
	CoordinateID string          `json:"coordinate_id,omitempty"`
	Status       catalog.Status  `json:"status"`
	StoredStatus catalog.Status  `json:"stored_status"`
	Price        decimal.Decimal `json:"price"`
	SizeSqm      decimal.Decimal `json:"size_sqm"`
	Garden       string          `json:"garden,omitempty"`
	Row          int             `json:"row,omitempty"`
	Building     string          `json:"building,omitempty"`
	Level        int             `json:"level,omitempty"`
	Column       int             `json:"column"`
	UpdatedAt    time.Time       `json:"updated_at"`
	// ReservationID is the active reservation claiming the resource, if any.
	ReservationID string `json:"reservation_id,omitempty"`
}

func newEntry(res *catalog.Resource) *Entry {
	return &Entry{
		Ref:          res.Ref,
		CoordinateID: res.CoordinateID(),
		Status:       res.Status,
		StoredStatus: res.Status,
		Price:        res.Price,
		SizeSqm:      res.SizeSqm,
		Garden:       res.Garden,
		Row:          res.Row,
		Building:     res.Building,
		Level:        res.Level,
		Column:       res.Column,
		UpdatedAt:    res.UpdatedAt,
	}
}

// Claimed reports whether the overlay turned an available resource into reserved.
func (e *Entry) Claimed() bool {
	return e.StoredStatus == catalog.StatusAvailable && e.Status == catalog.StatusReserved
}

type GraveFilter struct {
	Garden string
	Status catalog.Status
}

type ColumbariumFilter struct {
	Building string
	Status   catalog.Status
}
