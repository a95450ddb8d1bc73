package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columbariumTable = "public.columbarium_slots"

// ColumbariumRepository is the columbarium slot catalog.
type ColumbariumRepository struct {
	pool *pgxpool.Pool
}

func NewColumbariumRepository(pool *pgxpool.Pool) *ColumbariumRepository {
	return &ColumbariumRepository{pool: pool}
}

func (r *ColumbariumRepository) Kind() Kind { return KindColumbarium }

var columbariumColumns = []string{"slot_code", "building", "level_no", "col_no", "status", "price", "updated_at"}

func scanSlot(row pgx.Row) (*Resource, error) {
	res := &Resource{Ref: Ref{Kind: KindColumbarium}}
	var status string
	if err := row.Scan(&res.Ref.ID, &res.Building, &res.Level, &res.Column, &status, &res.Price, &res.UpdatedAt); err != nil {
		return nil, err
	}
	res.Status = Status(status)
	return res, nil
}

func (r *ColumbariumRepository) Find(ctx context.Context, id string) (*Resource, error) {
	query, args, err := psql.Select(columbariumColumns...).
		From(columbariumTable).
		Where(squirrel.Eq{"slot_code": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	res, err := scanSlot(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get columbarium slot failed: %w", err)
	}
	return res, nil
}

func (r *ColumbariumRepository) CompareAndSetStatus(ctx context.Context, id string, expected, next Status) (bool, error) {
	return compareAndSetStatus(ctx, r.pool, columbariumTable, "slot_code", id, expected, next)
}

func (r *ColumbariumRepository) List(ctx context.Context, filter Filter) ([]*Resource, error) {
	q := psql.Select(columbariumColumns...).From(columbariumTable)
	if filter.Building != "" {
		q = q.Where(squirrel.Eq{"building": filter.Building})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	query, args, err := q.OrderBy("building", "level_no", "col_no").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list columbarium slots failed: %w", err)
	}
	defer rows.Close()

	var result []*Resource
	for rows.Next() {
		res, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan columbarium slot failed: %w", err)
		}
		result = append(result, res)
	}
	return result, rows.Err()
}
