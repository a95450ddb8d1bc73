package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GridRepository is one garden's grid catalog. Each garden has its own table.
type GridRepository struct {
	pool   *pgxpool.Pool
	garden string
	table  string
}

// NewGridRepository returns the catalog for garden ("A".."D").
func NewGridRepository(pool *pgxpool.Pool, garden string) (*GridRepository, error) {
	garden = strings.ToUpper(garden)
	for _, g := range Gardens {
		if g == garden {
			return &GridRepository{
				pool:   pool,
				garden: garden,
				table:  fmt.Sprintf("public.garden_%s_graves", strings.ToLower(garden)),
			}, nil
		}
	}
	return nil, fmt.Errorf("unknown garden %q: %w", garden, ErrUnknownCatalog)
}

// NewGridRepositories returns one catalog per garden, keyed by garden letter.
func NewGridRepositories(pool *pgxpool.Pool) map[string]Catalog {
	grids := make(map[string]Catalog, len(Gardens))
	for _, g := range Gardens {
		repo, _ := NewGridRepository(pool, g)
		grids[g] = repo
	}
	return grids
}

func (r *GridRepository) Kind() Kind { return KindGardenGrid }

func (r *GridRepository) Garden() string { return r.garden }

var gridColumns = []string{"grave_id", "row_no", "col_no", "status", "price", "size_sqm", "updated_at"}

func (r *GridRepository) scan(row pgx.Row) (*Resource, error) {
	res := &Resource{Ref: Ref{Kind: KindGardenGrid}, Garden: r.garden}
	var status string
	if err := row.Scan(&res.Ref.ID, &res.Row, &res.Column, &status, &res.Price, &res.SizeSqm, &res.UpdatedAt); err != nil {
		return nil, err
	}
	res.Status = Status(status)
	return res, nil
}

func (r *GridRepository) Find(ctx context.Context, id string) (*Resource, error) {
	query, args, err := psql.Select(gridColumns...).
		From(r.table).
		Where(squirrel.Eq{"grave_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	res, err := r.scan(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get grave %s failed: %w", id, err)
	}
	return res, nil
}

func (r *GridRepository) CompareAndSetStatus(ctx context.Context, id string, expected, next Status) (bool, error) {
	return compareAndSetStatus(ctx, r.pool, r.table, "grave_id", id, expected, next)
}

func (r *GridRepository) List(ctx context.Context, filter Filter) ([]*Resource, error) {
	q := psql.Select(gridColumns...).From(r.table)
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	query, args, err := q.OrderBy("row_no", "col_no").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list garden %s failed: %w", r.garden, err)
	}
	defer rows.Close()

	var result []*Resource
	for rows.Next() {
		res, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grave failed: %w", err)
		}
		result = append(result, res)
	}
	return result, rows.Err()
}
