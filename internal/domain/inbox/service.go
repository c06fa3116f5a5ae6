package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	notifications NotificationRepository
}

func NewService(notifications NotificationRepository) *Service {
	return &Service{notifications: notifications}
}

// Notify creates an unread notification for doctorID.
func (s *Service) Notify(ctx context.Context, doctorID, patientID, message string) error {
	if doctorID == "" {
		return fmt.Errorf("doctor_id is required")
	}
	if message == "" {
		return fmt.Errorf("message is required")
	}
	return s.notifications.Create(ctx, &Notification{
		ID:        uuid.NewString(),
		DoctorID:  doctorID,
		PatientID: patientID,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) List(ctx context.Context, doctorID string, limit, offset int) ([]*Notification, int, error) {
	return s.notifications.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, doctorID string) (int, error) {
	return s.notifications.CountUnread(ctx, doctorID)
}

func (s *Service) MarkAllRead(ctx context.Context, doctorID string) (int, error) {
	return s.notifications.MarkAllRead(ctx, doctorID)
}
