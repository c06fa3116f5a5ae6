package patient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mindful/mindful/internal/domain/assessment"
	"github.com/mindful/mindful/internal/domain/auditlog"
	"github.com/mindful/mindful/internal/domain/user"
	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
	"github.com/mindful/mindful/internal/platform/identity"
	"github.com/mindful/mindful/internal/platform/notification"
)

// -- Mock User Repository --

type mockUserRepo struct {
	mu    sync.Mutex
	store map[string]*user.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{store: make(map[string]*user.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[u.ID]; ok {
		return errors.New("duplicate key")
	}
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.store {
		if u.Email == user.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
}

func (m *mockUserRepo) GetMany(ctx context.Context, ids []string) ([]*user.User, error) {
	var out []*user.User
	for _, id := range ids {
		if u, err := m.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) FindByEmailAndRole(ctx context.Context, email string, role auth.Role) (*user.User, error) {
	u, err := m.GetByEmail(ctx, email)
	if err != nil || u.Role != role {
		return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	return u, nil
}

func (m *mockUserRepo) Update(_ context.Context, id string, p user.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	p.Apply(u)
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	delete(m.store, id)
	return nil
}

func (m *mockUserRepo) patients(doctorID string, status user.AssessmentStatus) []*user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*user.User
	for _, u := range m.store {
		if u.Role == auth.RolePatient && u.DoctorID == doctorID && (status == "" || u.AssessmentStatus == status) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out
}

func (m *mockUserRepo) ListPatientsByDoctor(_ context.Context, doctorID string, limit, offset int) ([]*user.User, int, error) {
	all := m.patients(doctorID, "")
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) CountPatients(_ context.Context, doctorID string, status user.AssessmentStatus) (int, error) {
	return len(m.patients(doctorID, status)), nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role auth.Role, limit, offset int) ([]*user.User, int, error) {
	return nil, 0, nil
}

// -- Mock Identity Provider --

type mockIdentities struct {
	store map[string]*identity.Identity
}

func newMockIdentities() *mockIdentities {
	return &mockIdentities{store: make(map[string]*identity.Identity)}
}

func (m *mockIdentities) Create(_ context.Context, email string, role auth.Role) (*identity.Identity, string, error) {
	for _, i := range m.store {
		if strings.EqualFold(i.Email, email) {
			return nil, "", apperr.Conflict("An identity with this email already exists.")
		}
	}
	i := &identity.Identity{ID: uuid.NewString(), Email: email, Role: role, CreatedAt: time.Now()}
	m.store[i.ID] = i
	return i, "temp-secret", nil
}

func (m *mockIdentities) Ensure(_ context.Context, id, email string, role auth.Role) error {
	if _, ok := m.store[id]; !ok {
		m.store[id] = &identity.Identity{ID: id, Email: email, Role: role}
	}
	return nil
}

func (m *mockIdentities) Email(_ context.Context, id string) (string, error) {
	i, ok := m.store[id]
	if !ok {
		return "", fmt.Errorf("identity: %w", apperr.ErrNotFound)
	}
	return i.Email, nil
}

func (m *mockIdentities) Delete(_ context.Context, id string) error {
	delete(m.store, id)
	return nil
}

func (m *mockIdentities) SetRole(_ context.Context, id string, role auth.Role) error {
	i, ok := m.store[id]
	if !ok {
		return fmt.Errorf("identity: %w", apperr.ErrNotFound)
	}
	i.Role = role
	return nil
}

// -- Collaborator doubles --

type mockAssessments struct {
	byPatient map[string][]*assessment.Assessment
	pending   map[string]int
}

func (m *mockAssessments) ListForPatient(_ context.Context, patientID string) ([]*assessment.Assessment, error) {
	return m.byPatient[patientID], nil
}

func (m *mockAssessments) CountPendingReview(_ context.Context, doctorID string) (int, error) {
	return m.pending[doctorID], nil
}

type mockAuditor struct {
	events []auditlog.Event
	fail   bool
}

func (m *mockAuditor) Record(_ context.Context, ev auditlog.Event) (*auditlog.Entry, error) {
	if m.fail {
		return nil, errors.New("audit store unavailable")
	}
	m.events = append(m.events, ev)
	return &auditlog.Entry{ActorID: ev.ActorID, Action: ev.Action}, nil
}

func (m *mockAuditor) actions() []auditlog.Action {
	out := make([]auditlog.Action, len(m.events))
	for i, ev := range m.events {
		out[i] = ev.Action
	}
	return out
}

// -- Fixture --

type fixture struct {
	svc         *Service
	users       *mockUserRepo
	identities  *mockIdentities
	assessments *mockAssessments
	audit       *mockAuditor
	email       *notification.MockEmailSender
}

func newFixture() *fixture {
	f := &fixture{
		users:       newMockUserRepo(),
		identities:  newMockIdentities(),
		assessments: &mockAssessments{byPatient: map[string][]*assessment.Assessment{}, pending: map[string]int{}},
		audit:       &mockAuditor{},
		email:       &notification.MockEmailSender{},
	}
	mailer := notification.NewMailer(f.email, "http://localhost:3000", zerolog.Nop())
	f.svc = NewService(f.users, f.identities, f.assessments, f.audit, mailer)

	f.seed(&user.User{ID: "D1", Email: "doc@example.com", Role: auth.RoleDoctor, FirstName: "Dana", LastName: "Reyes"})
	f.seed(&user.User{ID: "D2", Email: "other@example.com", Role: auth.RoleDoctor, FirstName: "Ari", LastName: "Cole"})
	f.seed(&user.User{ID: "A1", Email: "admin@example.com", Role: auth.RoleAdmin})
	f.seed(&user.User{
		ID: "P1", Email: "pat@example.com", Role: auth.RolePatient,
		FirstName: "Sam", LastName: "Lee", DoctorID: "D1", AssessmentStatus: user.StatusCompleted,
	})
	f.seed(&user.User{ID: "P2", Email: "solo@example.com", Role: auth.RolePatient, AssessmentStatus: user.StatusIdle})
	return f
}

func (f *fixture) seed(u *user.User) {
	f.users.store[u.ID] = u
	f.identities.store[u.ID] = &identity.Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}
