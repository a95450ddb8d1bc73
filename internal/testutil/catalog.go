// Package testutil holds in-memory stand-ins for the storage and delivery
// collaborators, shared by the package tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
)

// MemoryCatalog is a catalog.Catalog whose CAS is serialized by a mutex.
type MemoryCatalog struct {
	kind catalog.Kind

	mu     sync.Mutex
	items  map[string]*catalog.Resource
	casErr error
}

func NewMemoryCatalog(kind catalog.Kind) *MemoryCatalog {
	return &MemoryCatalog{kind: kind, items: map[string]*catalog.Resource{}}
}

func (c *MemoryCatalog) Kind() catalog.Kind { return c.kind }

func (c *MemoryCatalog) Put(res *catalog.Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *res
	c.items[res.Ref.ID] = &cp
}

// FailCAS makes every CompareAndSetStatus return err until cleared with nil.
func (c *MemoryCatalog) FailCAS(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.casErr = err
}

func (c *MemoryCatalog) Find(_ context.Context, id string) (*catalog.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.items[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (c *MemoryCatalog) CompareAndSetStatus(_ context.Context, id string, expected, next catalog.Status) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.casErr != nil {
		return false, c.casErr
	}
	res, ok := c.items[id]
	if !ok {
		return false, catalog.ErrNotFound
	}
	if res.Status != expected {
		return false, nil
	}
	res.Status = next
	return true, nil
}

func (c *MemoryCatalog) List(_ context.Context, filter catalog.Filter) ([]*catalog.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*catalog.Resource
	for _, res := range c.items {
		if filter.Garden != "" && res.Garden != filter.Garden {
			continue
		}
		if filter.Building != "" && res.Building != filter.Building {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		cp := *res
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.ID < out[j].Ref.ID })
	return out, nil
}

// Catalogs is a full set of memory catalogs behind a real Registry.
type Catalogs struct {
	Lots        *MemoryCatalog
	Columbarium *MemoryCatalog
	Grids       map[string]*MemoryCatalog
	Registry    *catalog.Registry
}

// NewCatalogs seeds a registry with resources, routing each by its Ref.
func NewCatalogs(resources ...*catalog.Resource) *Catalogs {
	cs := &Catalogs{
		Lots:        NewMemoryCatalog(catalog.KindLegacyLot),
		Columbarium: NewMemoryCatalog(catalog.KindColumbarium),
		Grids:       map[string]*MemoryCatalog{},
	}
	grids := map[string]catalog.Catalog{}
	for _, g := range catalog.Gardens {
		mc := NewMemoryCatalog(catalog.KindGardenGrid)
		cs.Grids[g] = mc
		grids[g] = mc
	}
	cs.Registry = catalog.NewRegistry(cs.Lots, cs.Columbarium, grids)
	for _, res := range resources {
		cs.Put(res)
	}
	return cs
}

func (cs *Catalogs) Put(res *catalog.Resource) {
	switch res.Ref.Kind {
	case catalog.KindLegacyLot:
		cs.Lots.Put(res)
	case catalog.KindColumbarium:
		cs.Columbarium.Put(res)
	case catalog.KindGardenGrid:
		garden, _, _, err := catalog.ParseGridID(res.Ref.ID)
		if err != nil {
			panic(err)
		}
		cs.Grids[garden].Put(res)
	}
}

// Status returns the stored status of ref, or "" when it does not exist.
func (cs *Catalogs) Status(ref catalog.Ref) catalog.Status {
	res, err := cs.Registry.Find(context.Background(), ref)
	if err != nil {
		return ""
	}
	return res.Status
}

// Grave builds a garden grid cell from an id like "A-3-7".
func Grave(id string, status catalog.Status) *catalog.Resource {
	garden, row, col, err := catalog.ParseGridID(id)
	if err != nil {
		panic(err)
	}
	return &catalog.Resource{
		Ref:     catalog.Ref{Kind: catalog.KindGardenGrid, ID: id},
		Status:  status,
		Price:   decimal.RequireFromString("15000.00"),
		SizeSqm: decimal.RequireFromString("2.50"),
		Garden:  garden,
		Row:     row,
		Column:  col,
	}
}

// Lot builds a legacy lot placed at garden/row/col.
func Lot(code, garden string, row, col int, status catalog.Status) *catalog.Resource {
	return &catalog.Resource{
		Ref:     catalog.Ref{Kind: catalog.KindLegacyLot, ID: code},
		Status:  status,
		Price:   decimal.RequireFromString("12000.00"),
		SizeSqm: decimal.RequireFromString("2.50"),
		Garden:  garden,
		Row:     row,
		Column:  col,
	}
}

// Slot builds a columbarium slot in building at level/col.
func Slot(code, building string, level, col int, status catalog.Status) *catalog.Resource {
	return &catalog.Resource{
		Ref:      catalog.Ref{Kind: catalog.KindColumbarium, ID: code},
		Status:   status,
		Price:    decimal.RequireFromString("45000.00"),
		Building: building,
		Level:    level,
		Column:   col,
	}
}
