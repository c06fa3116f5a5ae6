package resource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mindful/mindful/internal/domain/user"
	"github.com/mindful/mindful/internal/platform/apperr"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	msgResourceNotFound  = "Resource not found."
)

// Profiles resolves the patient whose doctor's resources are listed.
type Profiles interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type Service struct {
	repo     Repository
	profiles Profiles
	now      func() time.Time
}

func NewService(repo Repository, profiles Profiles) *Service {
	return &Service{repo: repo, profiles: profiles, now: func() time.Time { return time.Now().UTC() }}
}

func validate(in Input) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperr.Validation("title", "title is required")
	}
	if len([]rune(in.Title)) > maxTitleLength {
		return apperr.Validation("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if len([]rune(in.Description)) > maxDescriptionLength {
		return apperr.Validation("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	u, err := url.ParseRequestURI(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation("url", "url must be an http or https link")
	}
	if !in.Category.Valid() {
		return apperr.Validation("category", fmt.Sprintf("unknown category %q", in.Category))
	}
	return nil
}

func (s *Service) Add(ctx context.Context, doctorID string, in Input) (*Resource, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	now := s.now()
	r := &Resource{
		ID:          uuid.NewString(),
		DoctorID:    doctorID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		URL:         in.URL,
		Category:    in.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, apperr.Dependency("create resource", err)
	}
	return r, nil
}

// owned loads a resource and checks doctorID created it.
func (s *Service) owned(ctx context.Context, doctorID, id string) (*Resource, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Lift(err, "load resource", msgResourceNotFound)
	}
	if r.DoctorID != doctorID {
		return nil, apperr.Forbidden("you can only change your own resources")
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, doctorID, id string, in Input) (*Resource, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	r, err := s.owned(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}
	r.Title = strings.TrimSpace(in.Title)
	r.Description = in.Description
	r.URL = in.URL
	r.Category = in.Category
	r.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, apperr.Lift(err, "update resource", msgResourceNotFound)
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, doctorID, id string) error {
	if _, err := s.owned(ctx, doctorID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Lift(err, "delete resource", msgResourceNotFound)
	}
	return nil
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID string) ([]*Resource, error) {
	items, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperr.Dependency("list resources", err)
	}
	if items == nil {
		items = []*Resource{}
	}
	return items, nil
}

// ListForPatient returns the linked doctor's resources, or nothing for an
// unlinked patient.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]*Resource, error) {
	p, err := s.profiles.GetByID(ctx, patientID)
	if err != nil {
		return nil, apperr.Lift(err, "load patient", "User not found.")
	}
	if p.DoctorID == "" {
		return []*Resource{}, nil
	}
	return s.ListByDoctor(ctx, p.DoctorID)
}
