package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Registry routes refs to the catalog that owns them. Grid refs are routed
// by garden prefix to one of the garden catalogs.
type Registry struct {
	lots        Catalog
	columbarium Catalog
	grids       map[string]Catalog
}

var _ Store = (*Registry)(nil)

// NewRegistry builds a registry. grids is keyed by garden letter ("A".."D").
func NewRegistry(lots, columbarium Catalog, grids map[string]Catalog) *Registry {
	normalized := make(map[string]Catalog, len(grids))
	for garden, c := range grids {
		normalized[strings.ToUpper(garden)] = c
	}
	return &Registry{lots: lots, columbarium: columbarium, grids: normalized}
}

func (r *Registry) route(ref Ref) (Catalog, error) {
	switch ref.Kind {
	case KindLegacyLot:
		if r.lots != nil {
			return r.lots, nil
		}
	case KindColumbarium:
		if r.columbarium != nil {
			return r.columbarium, nil
		}
	case KindGardenGrid:
		garden, _, _, err := ParseGridID(ref.ID)
		if err != nil {
			return nil, err
		}
		if c, ok := r.grids[garden]; ok {
			return c, nil
		}
	}
	return nil, ErrUnknownCatalog
}

func (r *Registry) Find(ctx context.Context, ref Ref) (*Resource, error) {
	c, err := r.route(ref)
	if err != nil {
		return nil, err
	}
	return c.Find(ctx, ref.ID)
}

func (r *Registry) CompareAndSetStatus(ctx context.Context, ref Ref, expected, next Status) (bool, error) {
	c, err := r.route(ref)
	if err != nil {
		return false, err
	}
	return c.CompareAndSetStatus(ctx, ref.ID, expected, next)
}

// List lists one kind. For garden grids an empty Filter.Garden lists every garden in order.
func (r *Registry) List(ctx context.Context, kind Kind, filter Filter) ([]*Resource, error) {
	switch kind {
	case KindLegacyLot:
		if r.lots == nil {
			return nil, ErrUnknownCatalog
		}
		return r.lots.List(ctx, filter)
	case KindColumbarium:
		if r.columbarium == nil {
			return nil, ErrUnknownCatalog
		}
		return r.columbarium.List(ctx, filter)
	case KindGardenGrid:
		gardens := Gardens
		if filter.Garden != "" {
			filter.Garden = strings.ToUpper(filter.Garden)
			gardens = []string{filter.Garden}
		}
		var result []*Resource
		for _, garden := range gardens {
			c, ok := r.grids[garden]
			if !ok {
				if filter.Garden != "" {
					return nil, ErrUnknownCatalog
				}
				continue
			}
			items, err := c.List(ctx, filter)
			if err != nil {
				return nil, fmt.Errorf("list garden %s: %w", garden, err)
			}
			result = append(result, items...)
		}
		return result, nil
	}
	return nil, ErrUnknownCatalog
}
