package availability

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
)

const (
	graveMapKey = "availability:graves"
	// graveMapGenKey names the current grave map entry. Invalidation moves it,
	// so a map built before a change lands under a key nobody reads again.
	graveMapGenKey = "availability:graves:gen"
)

// ReservationReader is the part of the ledger the read side needs.
type ReservationReader interface {
	ListActive(ctx context.Context, kinds ...catalog.Kind) ([]*reservation.Reservation, error)
	ListByResource(ctx context.Context, ref catalog.Ref, statuses []reservation.Status) ([]*reservation.Reservation, error)
}

type Service interface {
	ListGraves(ctx context.Context, filter GraveFilter) ([]*Entry, error)
	ListColumbarium(ctx context.Context, filter ColumbariumFilter) ([]*Entry, error)
	ResourceStatus(ctx context.Context, ref catalog.Ref) (*Entry, error)
}

type service struct {
	catalog      catalog.Store
	reservations ReservationReader
	cache        Cache
	ttl          time.Duration
}

// NewService builds the read side. cache may be nil.
func NewService(store catalog.Store, reservations ReservationReader, cache Cache, ttl time.Duration) Service {
	return &service{catalog: store, reservations: reservations, cache: cache, ttl: ttl}
}

func (s *service) ListGraves(ctx context.Context, filter GraveFilter) ([]*Entry, error) {
	if filter.Garden != "" && !slices.Contains(catalog.Gardens, strings.ToUpper(filter.Garden)) {
		return nil, catalog.ErrUnknownCatalog
	}

	entries, err := s.graveMap(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if filter.Garden != "" && !strings.EqualFold(e.Garden, filter.Garden) {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// graveMap returns the merged grave map, from cache when possible.
func (s *service) graveMap(ctx context.Context) ([]*Entry, error) {
	key, cached := s.graveMapEntry(ctx)
	if cached {
		if raw, ok, err := s.cache.Get(ctx, key); err != nil {
			slog.Warn("availability cache read failed", "error", err)
		} else if ok {
			var entries []*Entry
			if err := json.Unmarshal(raw, &entries); err == nil {
				return entries, nil
			}
			slog.Warn("availability cache entry is corrupt", "key", key)
		}
	}

	entries, err := s.buildGraveMap(ctx)
	if err != nil {
		return nil, err
	}

	if cached {
		if raw, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
				slog.Warn("availability cache write failed", "error", err)
			}
		}
	}
	return entries, nil
}

// graveMapEntry reads the current generation before any store is read. It
// reports false when the cache is off or unreadable.
func (s *service) graveMapEntry(ctx context.Context) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, ok, err := s.cache.Get(ctx, graveMapGenKey)
	if err != nil {
		slog.Warn("availability cache read failed", "error", err)
		return "", false
	}
	if !ok {
		return graveMapKey, true
	}
	return graveMapKey + ":" + string(gen), true
}

// buildGraveMap merges legacy lots and garden grids by coordinate id. A grid
// cell wins over a lot on the same coordinate; lots fill the gaps.
func (s *service) buildGraveMap(ctx context.Context) ([]*Entry, error) {
	grid, err := s.catalog.List(ctx, catalog.KindGardenGrid, catalog.Filter{})
	if err != nil {
		return nil, err
	}
	lots, err := s.catalog.List(ctx, catalog.KindLegacyLot, catalog.Filter{})
	if err != nil {
		return nil, err
	}

	byCoord := make(map[string]*Entry, len(grid)+len(lots))
	var order []string
	add := func(res *catalog.Resource) {
		key := res.CoordinateID()
		if key == "" {
			key = res.Ref.String()
		}
		if _, exists := byCoord[key]; exists {
			return
		}
		byCoord[key] = newEntry(res)
		order = append(order, key)
	}
	lotCoord := make(map[string]string, len(lots))
	for _, res := range grid {
		add(res)
	}
	for _, res := range lots {
		lotCoord[res.Ref.ID] = res.CoordinateID()
		add(res)
	}

	active, err := s.reservations.ListActive(ctx, catalog.KindGardenGrid, catalog.KindLegacyLot)
	if err != nil {
		return nil, err
	}
	for _, r := range active {
		coord := r.Resource.ID
		if r.Resource.Kind == catalog.KindLegacyLot {
			coord = lotCoord[r.Resource.ID]
		}
		if e, ok := byCoord[coord]; ok {
			overlay(e, r)
		}
	}

	entries := make([]*Entry, len(order))
	for i, key := range order {
		entries[i] = byCoord[key]
	}
	slices.SortFunc(entries, func(a, b *Entry) int {
		return cmp.Or(
			cmp.Compare(a.Garden, b.Garden),
			cmp.Compare(a.Row, b.Row),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.Ref.String(), b.Ref.String()),
		)
	})
	return entries, nil
}

func (s *service) ListColumbarium(ctx context.Context, filter ColumbariumFilter) ([]*Entry, error) {
	slots, err := s.catalog.List(ctx, catalog.KindColumbarium, catalog.Filter{Building: filter.Building})
	if err != nil {
		return nil, err
	}
	active, err := s.reservations.ListActive(ctx, catalog.KindColumbarium)
	if err != nil {
		return nil, err
	}
	claims := make(map[string]*reservation.Reservation, len(active))
	for _, r := range active {
		claims[r.Resource.ID] = r
	}

	result := make([]*Entry, 0, len(slots))
	for _, res := range slots {
		e := newEntry(res)
		if r, ok := claims[res.Ref.ID]; ok {
			overlay(e, r)
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *service) ResourceStatus(ctx context.Context, ref catalog.Ref) (*Entry, error) {
	res, err := s.catalog.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	e := newEntry(res)

	active, err := s.reservations.ListByResource(ctx, ref, reservation.ActiveStatuses)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		overlay(e, active[0])
	}
	return e, nil
}

// overlay shows an available resource with an active claim as reserved.
// Resources outside reservation control keep their stored status.
func overlay(e *Entry, r *reservation.Reservation) {
	e.ReservationID = r.ID
	if e.Status == catalog.StatusAvailable {
		e.Status = catalog.StatusReserved
	}
}
