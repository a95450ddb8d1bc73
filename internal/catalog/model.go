package catalog

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound       = apperror.New(http.StatusNotFound, "resource not found")
	ErrUnknownCatalog = apperror.New(http.StatusBadRequest, "unknown resource catalog")
	ErrInvalidID      = apperror.New(http.StatusBadRequest, "invalid resource id")
)

// Kind identifies which catalog a resource lives in.
type Kind string

const (
	KindLegacyLot   Kind = "legacy-lot"
	KindGardenGrid  Kind = "garden-grid"
	KindColumbarium Kind = "columbarium"
)

var Kinds = []Kind{KindLegacyLot, KindGardenGrid, KindColumbarium}

func (k Kind) Valid() bool {
	switch k {
	case KindLegacyLot, KindGardenGrid, KindColumbarium:
		return true
	}
	return false
}

// Status is the availability status stored on the resource row.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusReserved    Status = "reserved"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
	StatusUnavailable Status = "unavailable"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusOccupied, StatusMaintenance, StatusUnavailable:
		return true
	}
	return false
}

// Gardens lists the garden grids, in display order.
var Gardens = []string{"A", "B", "C", "D"}

// Ref points at one resource in one catalog. Reservations hold a Ref, never the resource itself.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.ID
}

var (
	gridIDPattern        = regexp.MustCompile(`^([A-Da-d])-(\d{1,3})-(\d{1,3})$`)
	lotCodePattern       = regexp.MustCompile(`^[A-Za-z]{1,3}-?\d{1,6}$`)
	columbariumIDPattern = regexp.MustCompile(`^[A-Z]\d[A-Z]\d{4}$`)
)

// NewRef validates kind and id and returns a normalized Ref.
func NewRef(kind, id string) (Ref, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(kind)))
	if !k.Valid() {
		return Ref{}, ErrUnknownCatalog
	}
	id = strings.ToUpper(strings.TrimSpace(id))

	switch k {
	case KindGardenGrid:
		if _, _, _, err := ParseGridID(id); err != nil {
			return Ref{}, err
		}
	case KindLegacyLot:
		if !lotCodePattern.MatchString(id) {
			return Ref{}, ErrInvalidID
		}
	case KindColumbarium:
		if !columbariumIDPattern.MatchString(id) {
			return Ref{}, ErrInvalidID
		}
	}
	return Ref{Kind: k, ID: id}, nil
}

// ParseGridID splits a grid cell id such as "A-3-7" into garden, row and column.
func ParseGridID(id string) (garden string, row, col int, err error) {
	m := gridIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, 0, ErrInvalidID
	}
	row, _ = strconv.Atoi(m[2])
	col, _ = strconv.Atoi(m[3])
	if row < 1 || col < 1 {
		return "", 0, 0, ErrInvalidID
	}
	return strings.ToUpper(m[1]), row, col, nil
}

// CoordinateID derives the garden-row-column id shared by lots and grid cells.
func CoordinateID(garden string, row, col int) string {
	return fmt.Sprintf("%s-%d-%d", strings.ToUpper(garden), row, col)
}

// Resource is a reservable spatial unit: a legacy lot, a garden grid cell, or a columbarium slot.
type Resource struct {
	Ref       Ref
	Status    Status
	Price     decimal.Decimal
	SizeSqm   decimal.Decimal
	Garden    string // lots and grid cells
	Row       int    // lots and grid cells
	Building  string // columbarium
	Level     int    // columbarium
	Column    int
	UpdatedAt time.Time
}

// CoordinateID returns the garden-row-column id for graves, or "" for columbarium slots.
func (r *Resource) CoordinateID() string {
	if r.Ref.Kind == KindColumbarium || r.Garden == "" {
		return ""
	}
	return CoordinateID(r.Garden, r.Row, r.Column)
}

// Filter narrows a catalog listing.
type Filter struct {
	Garden   string
	Building string
	Status   Status
}
