package user

import (
	"context"

	"github.com/mindful/mindful/internal/platform/auth"
)

// Repository is the users collection. Missing documents surface as
// apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetMany is the set-membership lookup. Unknown ids are skipped.
	GetMany(ctx context.Context, ids []string) ([]*User, error)
	FindByEmailAndRole(ctx context.Context, email string, role auth.Role) (*User, error)
	Update(ctx context.Context, id string, p Patch) error
	Delete(ctx context.Context, id string) error
	ListPatientsByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*User, int, error)
	// CountPatients counts a doctor's patients, optionally by status.
	CountPatients(ctx context.Context, doctorID string, status AssessmentStatus) (int, error)
	ListByRole(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error)
}
