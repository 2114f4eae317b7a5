package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for the session registry.
type Repository interface {
	CreateSession(ctx context.Context, rec SessionRecord) error
	DeleteSession(ctx context.Context, id string) error
	// DeleteLapsed removes registry rows whose expiry has passed and
	// returns their session IDs so callers can tear down the matching
	// credential slots.
	DeleteLapsed(ctx context.Context, now time.Time) ([]string, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const uniqueViolation = "23505"

// CreateSession persists a new login in the registry. A repeated login on
// the same browser session overwrites the previous row (last writer wins,
// matching the credential slot).
func (r *PGRepository) CreateSession(ctx context.Context, rec SessionRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO dashboard_sessions (id, email, role, expires_at, ip, ua, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		rec.ID, rec.Email, rec.Role, rec.ExpiresAt.UTC(), rec.IP, rec.UserAgent)
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		_, err = r.pool.Exec(ctx,
			`UPDATE dashboard_sessions SET email=$2, role=$3, expires_at=$4, ip=$5, ua=$6, created_at=NOW()
			 WHERE id=$1`,
			rec.ID, rec.Email, rec.Role, rec.ExpiresAt.UTC(), rec.IP, rec.UserAgent)
	}
	return err
}

// DeleteSession removes a session record from the registry.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM dashboard_sessions WHERE id=$1`, id)
	return err
}

// DeleteLapsed removes all lapsed registry rows.
func (r *PGRepository) DeleteLapsed(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`DELETE FROM dashboard_sessions WHERE expires_at < $1 RETURNING id`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
