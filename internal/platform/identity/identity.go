// Package identity is the built-in identity provider: it owns login
// identities, their role claim and the temporary credential issued when a
// doctor registers a patient.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
)

type Identity struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	Role         auth.Role `json:"role" bson:"role"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

type Repository interface {
	Create(ctx context.Context, id *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	Delete(ctx context.Context, id string) error
	UpdateRole(ctx context.Context, id string, role auth.Role) error
}

// Provider is what workflows see of the identity store.
type Provider interface {
	Create(ctx context.Context, email string, role auth.Role) (*Identity, string, error)
	Ensure(ctx context.Context, id, email string, role auth.Role) error
	Email(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	SetRole(ctx context.Context, id string, role auth.Role) error
}

type Service struct {
	repo Repository
	cost int
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

// SetCost overrides the bcrypt cost. Tests lower it.
func (s *Service) SetCost(cost int) {
	s.cost = cost
}

// Create registers email with role and returns the identity with its
// temporary password. The password is never stored in clear.
func (s *Service) Create(ctx context.Context, email string, role auth.Role) (*Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", apperr.Validation("email", "email is required")
	}
	if !role.Valid() {
		return nil, "", apperr.Validation("role", fmt.Sprintf("unknown role %q", role))
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, "", apperr.Conflict("An identity with this email already exists.")
	} else if !apperr.IsNotFound(err) {
		return nil, "", err
	}

	password, err := temporaryPassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash temporary password: %w", err)
	}
	id := &Identity{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, id); err != nil {
		return nil, "", err
	}
	return id, password, nil
}

// Ensure registers an identity issued by an external provider under its own
// id. It has no local password. Existing identities are left unchanged.
func (s *Service) Ensure(ctx context.Context, id, email string, role auth.Role) error {
	if id == "" {
		return apperr.Validation("id", "id is required")
	}
	if _, err := s.repo.GetByID(ctx, id); err == nil {
		return nil
	} else if !apperr.IsNotFound(err) {
		return err
	}
	if !role.Valid() {
		return apperr.Validation("role", fmt.Sprintf("unknown role %q", role))
	}
	return s.repo.Create(ctx, &Identity{
		ID:        id,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	})
}

// Email resolves an actor id to its address. An identity without an email
// returns "".
func (s *Service) Email(ctx context.Context, id string) (string, error) {
	ident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return ident.Email, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) SetRole(ctx context.Context, id string, role auth.Role) error {
	if !role.Valid() {
		return apperr.Validation("role", fmt.Sprintf("unknown role %q", role))
	}
	return s.repo.UpdateRole(ctx, id, role)
}

// Verify checks password against the stored hash.
func (s *Service) Verify(ctx context.Context, email, password string) (*Identity, error) {
	ident, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if apperr.IsNotFound(err) {
		return nil, apperr.Forbidden("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if ident.PasswordHash == "" {
		return nil, apperr.Forbidden("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Forbidden("invalid credentials")
	}
	return ident, nil
}

func temporaryPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
