package assessment

import "context"

// Repository is the assessments collection. Missing documents surface as
// apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id string) (*Assessment, error)
	// SetReview stores note and marks the assessment reviewed.
	SetReview(ctx context.Context, id, note string) error
	// ListByUser returns a patient's assessments, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Assessment, error)
	LatestByUser(ctx context.Context, userID string) (*Assessment, error)
	// ListPendingReview returns a doctor's unreviewed assessments, newest first.
	ListPendingReview(ctx context.Context, doctorID string, limit int) ([]*Assessment, error)
	CountPendingReview(ctx context.Context, doctorID string) (int, error)
}
