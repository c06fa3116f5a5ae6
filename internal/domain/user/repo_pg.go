package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
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

const userCols = `id, email, role, first_name, last_name, phone, date_of_birth,
	emergency_contact_name, emergency_contact_phone, source, profile_complete, hipaa_consent,
	doctor_id, assessment_status, assessment_sent_at, last_assessment_at,
	last_phq9_score, last_gad7_score, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Role, &u.FirstName, &u.LastName, &u.Phone, &u.DateOfBirth,
		&u.EmergencyContactName, &u.EmergencyContactPhone, &u.Source, &u.ProfileComplete, &u.HIPAAConsent,
		&u.DoctorID, &u.AssessmentStatus, &u.AssessmentSentAt, &u.LastAssessmentAt,
		&u.LastPhq9Score, &u.LastGad7Score, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func collect(rows pgx.Rows) ([]*User, error) {
	defer rows.Close()
	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (`+userCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		u.ID, u.Email, u.Role, u.FirstName, u.LastName, u.Phone, u.DateOfBirth,
		u.EmergencyContactName, u.EmergencyContactPhone, u.Source, u.ProfileComplete, u.HIPAAConsent,
		u.DoctorID, u.AssessmentStatus, u.AssessmentSentAt, u.LastAssessmentAt,
		u.LastPhq9Score, u.LastGad7Score, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1 LIMIT 1`, NormalizeEmail(email)))
}

func (r *repoPG) GetMany(ctx context.Context, ids []string) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repoPG) FindByEmailAndRole(ctx context.Context, email string, role auth.Role) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1 AND role = $2 LIMIT 1`, NormalizeEmail(email), role))
}

func (r *repoPG) Update(ctx context.Context, id string, p Patch) error {
	fields := p.fields()
	if len(fields) == 0 {
		return nil
	}
	sets := make([]string, 0, len(fields)+1)
	args := []interface{}{id}
	for _, f := range fields {
		args = append(args, f.value)
		sets = append(sets, fmt.Sprintf("%s = $%d", f.column, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListPatientsByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE doctor_id = $1 AND role = $2`, doctorID, auth.RolePatient).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users
		WHERE doctor_id = $1 AND role = $2
		ORDER BY last_name, first_name, email LIMIT $3 OFFSET $4`,
		doctorID, auth.RolePatient, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) CountPatients(ctx context.Context, doctorID string, status AssessmentStatus) (int, error) {
	q := `SELECT COUNT(*) FROM users WHERE doctor_id = $1 AND role = $2`
	args := []interface{}{doctorID, auth.RolePatient}
	if status != "" {
		q += ` AND assessment_status = $3`
		args = append(args, status)
	}
	var n int
	err := r.conn(ctx).QueryRow(ctx, q, args...).Scan(&n)
	return n, err
}

func (r *repoPG) ListByRole(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users WHERE role = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows)
	return items, total, err
}
