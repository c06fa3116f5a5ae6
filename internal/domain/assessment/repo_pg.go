package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindful/mindful/internal/domain/screening"
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

const assessmentCols = `id, user_id, doctor_id, phq9_score, gad7_score, answers, additional_context,
	doctor_note, recommendation_generated, recommendations, created_at`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.UserID, &a.DoctorID, &a.PHQ9Score, &a.GAD7Score, &a.Answers,
		&a.AdditionalContext, &a.DoctorNote, &a.Reviewed, &a.Recommendations, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("assessment: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) list(ctx context.Context, tail string, args ...interface{}) ([]*Assessment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+assessmentCols+` FROM assessments `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, a *Assessment) error {
	recs := a.Recommendations
	if recs == nil {
		recs = []screening.Resource{}
	}
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO assessments (`+assessmentCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.UserID, a.DoctorID, a.PHQ9Score, a.GAD7Score, a.Answers, a.AdditionalContext,
		a.DoctorNote, a.Reviewed, recs, a.CreatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Assessment, error) {
	return scanAssessment(r.conn(ctx).QueryRow(ctx, `SELECT `+assessmentCols+` FROM assessments WHERE id = $1`, id))
}

func (r *repoPG) SetReview(ctx context.Context, id, note string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE assessments SET doctor_note = $2, recommendation_generated = TRUE WHERE id = $1`, id, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assessment %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID string) ([]*Assessment, error) {
	return r.list(ctx, `WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *repoPG) LatestByUser(ctx context.Context, userID string) (*Assessment, error) {
	return scanAssessment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM assessments WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID))
}

func (r *repoPG) ListPendingReview(ctx context.Context, doctorID string, limit int) ([]*Assessment, error) {
	return r.list(ctx, `WHERE doctor_id = $1 AND recommendation_generated = FALSE
		ORDER BY created_at DESC LIMIT $2`, doctorID, limit)
}

func (r *repoPG) CountPendingReview(ctx context.Context, doctorID string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM assessments WHERE doctor_id = $1 AND recommendation_generated = FALSE`,
		doctorID).Scan(&n)
	return n, err
}
