package auditlog

import "context"

// Repository is append-only: there is no update or delete.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	// Recent returns the newest entries first.
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	ByActorEmail(ctx context.Context, email string, limit int) ([]*Entry, error)
	ByTargetID(ctx context.Context, targetID string, limit int) ([]*Entry, error)
}
