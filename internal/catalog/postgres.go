package catalog

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// compareAndSetStatus is the single conditional UPDATE every backend shares.
// table and keyColumn are package constants, never user input.
func compareAndSetStatus(ctx context.Context, pool *pgxpool.Pool, table, keyColumn, id string, expected, next Status) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, updated_at = now()
		WHERE %s = $2 AND status = $3
	`, table, keyColumn)

	ct, err := pool.Exec(ctx, query, string(next), id, string(expected))
	if err != nil {
		return false, fmt.Errorf("compare-and-set status on %s failed: %w", table, err)
	}
	if ct.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	probe := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`, table, keyColumn)
	if err := pool.QueryRow(ctx, probe, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("probe %s failed: %w", table, err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}
