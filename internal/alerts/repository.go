package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow-io/stockflow/internal/shared"
)

// Repository persists alerts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const alertColumns = `id, org_id, type, severity, title, message, related_entity, related_id,
	action_url, read_at, dismissed_at, created_at`

func scanAlert(row pgx.Row) (Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.OrgID, &a.Type, &a.Severity, &a.Title, &a.Message,
		&a.RelatedEntity, &a.RelatedID, &a.ActionURL, &a.ReadAt, &a.DismissedAt, &a.CreatedAt)
	return a, err
}

// HasRecentUnresolved reports whether an unread, undismissed alert of the same
// type for the same related entity was created after the cutoff.
func (r *Repository) HasRecentUnresolved(ctx context.Context, orgID uuid.UUID, alertType, relatedEntity string, relatedID uuid.UUID, cutoff time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE org_id=$1 AND type=$2 AND related_entity=$3 AND related_id=$4
			  AND read_at IS NULL AND dismissed_at IS NULL AND created_at > $5
		)`, orgID, alertType, relatedEntity, relatedID, cutoff).Scan(&exists)
	return exists, err
}

// Insert stores a new alert.
func (r *Repository) Insert(ctx context.Context, a Alert) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO alerts (id, org_id, type, severity, title, message, related_entity, related_id, action_url, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.OrgID, a.Type, a.Severity, a.Title, a.Message, a.RelatedEntity, a.RelatedID, a.ActionURL, a.CreatedAt)
	return err
}

// Get returns one alert scoped to the organization.
func (r *Repository) Get(ctx context.Context, orgID, id uuid.UUID) (Alert, error) {
	a, err := scanAlert(r.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Alert{}, &shared.NotFoundError{Entity: "alert", ID: id.String()}
		}
		return Alert{}, err
	}
	return a, nil
}

// List returns alerts for an organization, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, unresolvedOnly bool) ([]Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE org_id=$1`
	if unresolvedOnly {
		query += ` AND read_at IS NULL AND dismissed_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT 200`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkRead sets the read timestamp.
func (r *Repository) MarkRead(ctx context.Context, orgID, id uuid.UUID) error {
	return r.setTimestamp(ctx, orgID, id, "read_at")
}

// Dismiss sets the dismissed timestamp.
func (r *Repository) Dismiss(ctx context.Context, orgID, id uuid.UUID) error {
	return r.setTimestamp(ctx, orgID, id, "dismissed_at")
}

func (r *Repository) setTimestamp(ctx context.Context, orgID, id uuid.UUID, column string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE alerts SET `+column+`=NOW() WHERE org_id=$1 AND id=$2 AND `+column+` IS NULL`,
		orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "alert", ID: id.String()}
	}
	return nil
}
