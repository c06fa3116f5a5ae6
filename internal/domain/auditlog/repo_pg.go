package auditlog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindful/mindful/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, actor_id, actor_email, action, target_type, target_id, details, recorded_at`

// Append inserts e. pgx encodes a nil map as NULL, which details rejects.
func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	details := e.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO audit_logs (`+entryCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ActorID, e.ActorEmail, e.Action, e.TargetType, e.TargetID, details, e.Timestamp)
	return err
}

func (r *repoPG) list(ctx context.Context, where string, args ...interface{}) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+entryCols+` FROM audit_logs `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.Action, &e.TargetType, &e.TargetID,
			&e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *repoPG) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	return r.list(ctx, `ORDER BY recorded_at DESC LIMIT $1`, limit)
}

func (r *repoPG) ByActorEmail(ctx context.Context, email string, limit int) ([]*Entry, error) {
	return r.list(ctx, `WHERE actor_email = $1 ORDER BY recorded_at DESC LIMIT $2`, email, limit)
}

func (r *repoPG) ByTargetID(ctx context.Context, targetID string, limit int) ([]*Entry, error) {
	return r.list(ctx, `WHERE target_id = $1 ORDER BY recorded_at DESC LIMIT $2`, targetID, limit)
}
