package resource

import "context"

type Repository interface {
	Create(ctx context.Context, r *Resource) error
	GetByID(ctx context.Context, id string) (*Resource, error)
	Update(ctx context.Context, r *Resource) error
	Delete(ctx context.Context, id string) error
	// ListByDoctor returns newest first.
	ListByDoctor(ctx context.Context, doctorID string) ([]*Resource, error)
}
