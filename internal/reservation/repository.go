package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
)

// activeClaimIndex is the partial unique index over pending/approved reservations.
const activeClaimIndex = "reservations_active_claim_idx"

// Repository is the reservation ledger.
type Repository interface {
	// Create inserts a reservation. It returns ErrActiveClaimExists when the
	// resource already has a pending or approved reservation.
	Create(ctx context.Context, res *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	ListByResource(ctx context.Context, ref catalog.Ref, statuses []Status) ([]*Reservation, error)
	// ListActive returns pending and approved reservations, optionally limited to kinds.
	ListActive(ctx context.Context, kinds ...catalog.Kind) ([]*Reservation, error)
	// ListStalePending returns pending reservations created before the cutoff that
	// never had a confirmation delivered, oldest first.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*Reservation, error)
	// UpdateStatus applies change only if the reservation is still in expected.
	// It returns ErrStaleStatus when the status moved and ErrNotFound when the record is gone.
	UpdateStatus(ctx context.Context, id string, expected Status, change StatusChange) (*Reservation, error)
	// AttachProof records the proof artifact while the reservation is pending.
	AttachProof(ctx context.Context, id, fileID string) error
	MarkConfirmationSent(ctx context.Context, id string, at time.Time) error
	// Delete removes the record and returns the status it had.
	Delete(ctx context.Context, id string) (Status, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var columns = []string{
	"id", "catalog_kind", "resource_id", "actor_role", "created_by", "client_id", "status",
	"client_name", "client_email", "client_phone", "client_address",
	"deceased_name", "deceased_birth_date", "deceased_death_date", "deceased_relationship",
	"payment_amount", "payment_method", "proof_file_id",
	"approved_by", "approved_at", "rejection_reason", "confirmation_sent_at", "notes",
	"created_at", "updated_at",
}

func scanReservation(row pgx.Row, extra ...any) (*Reservation, error) {
	r := &Reservation{}
	var kind, role, status, method string
	dest := []any{
		&r.ID, &kind, &r.Resource.ID, &role, &r.CreatedBy, &r.ClientID, &status,
		&r.Client.Name, &r.Client.Email, &r.Client.Phone, &r.Client.Address,
		&r.Deceased.Name, &r.Deceased.DateOfBirth, &r.Deceased.DateOfDeath, &r.Deceased.Relationship,
		&r.Payment.Amount, &method, &r.Payment.ProofFileID,
		&r.ApprovedBy, &r.ApprovedAt, &r.RejectionReason, &r.ConfirmationSentAt, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.Resource.Kind = catalog.Kind(kind)
	r.ActorRole = auth.Role(role)
	r.Status = Status(status)
	r.Payment.Method = PaymentMethod(method)
	return r, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *pgxRepository) Create(ctx context.Context, res *Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	query, args, err := psql.Insert("public.reservations").
		Columns(
			"id", "catalog_kind", "resource_id", "actor_role", "created_by", "client_id", "status",
			"client_name", "client_email", "client_phone", "client_address",
			"deceased_name", "deceased_birth_date", "deceased_death_date", "deceased_relationship",
			"payment_amount", "payment_method", "proof_file_id",
			"approved_by", "approved_at", "notes",
		).
		Values(
			res.ID, string(res.Resource.Kind), res.Resource.ID, string(res.ActorRole), res.CreatedBy, res.ClientID, string(res.Status),
			res.Client.Name, res.Client.Email, res.Client.Phone, res.Client.Address,
			res.Deceased.Name, res.Deceased.DateOfBirth, res.Deceased.DateOfDeath, res.Deceased.Relationship,
			res.Payment.Amount, string(res.Payment.Method), res.Payment.ProofFileID,
			res.ApprovedBy, res.ApprovedAt, res.Notes,
		).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create reservation query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.CreatedAt, &res.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == activeClaimIndex {
			return ErrActiveClaimExists.WithCause(err)
		}
		return fmt.Errorf("create reservation failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	query, args, err := psql.Select(columns...).
		From("public.reservations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	res, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return res, nil
}

var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	q := psql.Select(append(columns, "count(*) OVER() AS total_count")...).
		From("public.reservations")

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.Kind != "" {
		q = q.Where(squirrel.Eq{"catalog_kind": string(filter.Kind)})
	}
	if filter.ResourceID != "" {
		q = q.Where(squirrel.Eq{"resource_id": filter.ResourceID})
	}
	if filter.OwnerID != "" {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"created_by": filter.OwnerID},
			squirrel.Eq{"client_id": filter.OwnerID},
		})
	}

	sortBy, ok := sortColumns[filter.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}
	q = q.OrderBy(sortBy + " " + order)

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	q = q.Limit(uint64(filter.PageSize)).Offset(uint64((filter.Page - 1) * filter.PageSize))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	var total int
	for rows.Next() {
		res, err := scanReservation(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}
	return result, total, nil
}

func (r *pgxRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]*Reservation, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reservation query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, res)
	}
	return result, rows.Err()
}

func (r *pgxRepository) ListByResource(ctx context.Context, ref catalog.Ref, statuses []Status) ([]*Reservation, error) {
	q := psql.Select(columns...).
		From("public.reservations").
		Where(squirrel.Eq{"catalog_kind": string(ref.Kind), "resource_id": ref.ID})
	if len(statuses) > 0 {
		q = q.Where(squirrel.Eq{"status": statusStrings(statuses)})
	}
	return r.query(ctx, q.OrderBy("created_at"))
}

func (r *pgxRepository) ListActive(ctx context.Context, kinds ...catalog.Kind) ([]*Reservation, error) {
	q := psql.Select(columns...).
		From("public.reservations").
		Where(squirrel.Eq{"status": statusStrings(ActiveStatuses)})
	if len(kinds) > 0 {
		ks := make([]string, len(kinds))
		for i, k := range kinds {
			ks[i] = string(k)
		}
		q = q.Where(squirrel.Eq{"catalog_kind": ks})
	}
	return r.query(ctx, q)
}

func (r *pgxRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*Reservation, error) {
	q := psql.Select(columns...).
		From("public.reservations").
		Where(squirrel.Eq{"status": string(StatusPending), "confirmation_sent_at": nil}).
		Where(squirrel.Lt{"created_at": before}).
		OrderBy("created_at")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.query(ctx, q)
}

// missingOrStale distinguishes a vanished record from one whose status moved.
func (r *pgxRepository) missingOrStale(ctx context.Context, id string) error {
	var exists bool
	const probe = `SELECT EXISTS (SELECT 1 FROM public.reservations WHERE id = $1)`
	if err := r.pool.QueryRow(ctx, probe, id).Scan(&exists); err != nil {
		return fmt.Errorf("probe reservation failed: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleStatus
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, expected Status, change StatusChange) (*Reservation, error) {
	q := psql.Update("public.reservations").
		Set("status", string(change.Status)).
		Set("updated_at", change.At).
		Where(squirrel.Eq{"id": id, "status": string(expected)})
	if change.ApprovedBy != nil {
		q = q.Set("approved_by", *change.ApprovedBy)
	}
	if change.ApprovedAt != nil {
		q = q.Set("approved_at", *change.ApprovedAt)
	}
	if change.RejectionReason != nil {
		q = q.Set("rejection_reason", *change.RejectionReason)
	}

	query, args, err := q.Suffix("RETURNING " + strings.Join(columns, ", ")).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update status query failed: %w", err)
	}

	res, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missingOrStale(ctx, id)
		}
		return nil, fmt.Errorf("update reservation status failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) AttachProof(ctx context.Context, id, fileID string) error {
	// One proof per reservation: a second attach must never replace a delivered confirmation.
	const query = `
		UPDATE public.reservations
		SET proof_file_id = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		  AND proof_file_id IS NULL AND confirmation_sent_at IS NULL
	`
	ct, err := r.pool.Exec(ctx, query, fileID, id, string(StatusPending))
	if err != nil {
		return fmt.Errorf("attach proof failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.missingOrStale(ctx, id)
	}
	return nil
}

func (r *pgxRepository) MarkConfirmationSent(ctx context.Context, id string, at time.Time) error {
	// Staff may approve while delivery is in flight; a cancelled or rejected record is left unstamped.
	const query = `
		UPDATE public.reservations
		SET confirmation_sent_at = $1, updated_at = now()
		WHERE id = $2 AND status IN ($3, $4)
	`
	ct, err := r.pool.Exec(ctx, query, at, id, string(StatusPending), string(StatusApproved))
	if err != nil {
		return fmt.Errorf("mark confirmation sent failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.missingOrStale(ctx, id)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) (Status, error) {
	const query = `DELETE FROM public.reservations WHERE id = $1 RETURNING status`
	var status string
	if err := r.pool.QueryRow(ctx, query, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("delete reservation failed: %w", err)
	}
	return Status(status), nil
}
