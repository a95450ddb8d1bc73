package catalog

import "context"

// Catalog is one backing table of reservable resources.
type Catalog interface {
	Kind() Kind
	Find(ctx context.Context, id string) (*Resource, error)
	// CompareAndSetStatus moves the resource from expected to next in one atomic step.
	// It returns false when the current status is not expected, and ErrNotFound
	// when the resource does not exist.
	CompareAndSetStatus(ctx context.Context, id string, expected, next Status) (bool, error)
	List(ctx context.Context, filter Filter) ([]*Resource, error)
}

// Store is the catalog contract the reservation engine depends on, addressed by Ref.
type Store interface {
	Find(ctx context.Context, ref Ref) (*Resource, error)
	CompareAndSetStatus(ctx context.Context, ref Ref, expected, next Status) (bool, error)
	List(ctx context.Context, kind Kind, filter Filter) ([]*Resource, error)
}
