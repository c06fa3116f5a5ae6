package inbox

import "context"

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	// ListByDoctor returns newest first.
	ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Notification, int, error)
	CountUnread(ctx context.Context, doctorID string) (int, error)
	// MarkAllRead returns how many notifications changed.
	MarkAllRead(ctx context.Context, doctorID string) (int, error)
}
