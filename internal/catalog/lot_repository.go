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

const lotsTable = "public.lots"

// LotRepository is the legacy lot catalog.
type LotRepository struct {
	pool *pgxpool.Pool
}

func NewLotRepository(pool *pgxpool.Pool) *LotRepository {
	return &LotRepository{pool: pool}
}

func (r *LotRepository) Kind() Kind { return KindLegacyLot }

var lotColumns = []string{"lot_code", "garden", "row_no", "col_no", "status", "price", "size_sqm", "updated_at"}

func scanLot(row pgx.Row) (*Resource, error) {
	res := &Resource{Ref: Ref{Kind: KindLegacyLot}}
	var status string
	if err := row.Scan(&res.Ref.ID, &res.Garden, &res.Row, &res.Column, &status, &res.Price, &res.SizeSqm, &res.UpdatedAt); err != nil {
		return nil, err
	}
	res.Status = Status(status)
	return res, nil
}

func (r *LotRepository) Find(ctx context.Context, id string) (*Resource, error) {
	query, args, err := psql.Select(lotColumns...).
		From(lotsTable).
		Where(squirrel.Eq{"lot_code": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	res, err := scanLot(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get lot failed: %w", err)
	}
	return res, nil
}

func (r *LotRepository) CompareAndSetStatus(ctx context.Context, id string, expected, next Status) (bool, error) {
	return compareAndSetStatus(ctx, r.pool, lotsTable, "lot_code", id, expected, next)
}

func (r *LotRepository) List(ctx context.Context, filter Filter) ([]*Resource, error) {
	q := psql.Select(lotColumns...).From(lotsTable)
	if filter.Garden != "" {
		q = q.Where(squirrel.Eq{"garden": strings.ToUpper(filter.Garden)})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	query, args, err := q.OrderBy("garden", "row_no", "col_no").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots failed: %w", err)
	}
	defer rows.Close()

	var result []*Resource
	for rows.Next() {
		res, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot failed: %w", err)
		}
		result = append(result, res)
	}
	return result, rows.Err()
}
