package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
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

const resourceCols = `id, doctor_id, title, description, url, category, created_at, updated_at`

func scanResource(row pgx.Row) (*Resource, error) {
	var res Resource
	err := row.Scan(&res.ID, &res.DoctorID, &res.Title, &res.Description, &res.URL,
		&res.Category, &res.CreatedAt, &res.UpdatedAt)
	return &res, err
}

func (r *repoPG) Create(ctx context.Context, res *Resource) error {
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO resources (`+resourceCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.ID, res.DoctorID, res.Title, res.Description, res.URL, res.Category, res.CreatedAt, res.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Resource, error) {
	res, err := scanResource(r.conn(ctx).QueryRow(ctx, `SELECT `+resourceCols+` FROM resources WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resource %s: %w", id, apperr.ErrNotFound)
	}
	return res, err
}

func (r *repoPG) Update(ctx context.Context, res *Resource) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE resources
		SET title = $2, description = $3, url = $4, category = $5, updated_at = $6
		WHERE id = $1`,
		res.ID, res.Title, res.Description, res.URL, res.Category, res.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("resource %s: %w", res.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("resource %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID string) ([]*Resource, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+resourceCols+` FROM resources
		WHERE doctor_id = $1 ORDER BY created_at DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, res)
	}
	return items, rows.Err()
}
