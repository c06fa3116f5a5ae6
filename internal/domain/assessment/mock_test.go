package assessment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mindful/mindful/internal/domain/auditlog"
	"github.com/mindful/mindful/internal/domain/screening"
	"github.com/mindful/mindful/internal/domain/user"
	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
	"github.com/mindful/mindful/internal/platform/notification"
)

// -- Mock Assessment Repository --

type mockAssessmentRepo struct {
	mu         sync.Mutex
	store      map[string]*Assessment
	failCreate bool
}

func newMockAssessmentRepo() *mockAssessmentRepo {
	return &mockAssessmentRepo{store: make(map[string]*Assessment)}
}

func (m *mockAssessmentRepo) Create(_ context.Context, a *Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errors.New("store unavailable")
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAssessmentRepo) GetByID(_ context.Context, id string) (*Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("assessment: %w", apperr.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *mockAssessmentRepo) SetReview(_ context.Context, id, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[id]
	if !ok {
		return fmt.Errorf("assessment: %w", apperr.ErrNotFound)
	}
	a.DoctorNote = note
	a.Reviewed = true
	return nil
}

func (m *mockAssessmentRepo) filter(keep func(*Assessment) bool) []*Assessment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Assessment
	for _, a := range m.store {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockAssessmentRepo) ListByUser(_ context.Context, userID string) ([]*Assessment, error) {
	return m.filter(func(a *Assessment) bool { return a.UserID == userID }), nil
}

func (m *mockAssessmentRepo) LatestByUser(ctx context.Context, userID string) (*Assessment, error) {
	items, _ := m.ListByUser(ctx, userID)
	if len(items) == 0 {
		return nil, fmt.Errorf("assessment: %w", apperr.ErrNotFound)
	}
	return items[0], nil
}

func (m *mockAssessmentRepo) ListPendingReview(_ context.Context, doctorID string, limit int) ([]*Assessment, error) {
	out := m.filter(func(a *Assessment) bool { return a.DoctorID == doctorID && !a.Reviewed })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockAssessmentRepo) CountPendingReview(ctx context.Context, doctorID string) (int, error) {
	items, _ := m.ListPendingReview(ctx, doctorID, len(m.store)+1)
	return len(items), nil
}

// -- Mock User Repository --

type mockUserRepo struct {
	mu         sync.Mutex
	store      map[string]*user.User
	failUpdate bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{store: make(map[string]*user.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[u.ID] = u
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
	if m.failUpdate {
		return errors.New("store unavailable")
	}
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
	delete(m.store, id)
	return nil
}

func (m *mockUserRepo) ListPatientsByDoctor(_ context.Context, doctorID string, limit, offset int) ([]*user.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) CountPatients(_ context.Context, doctorID string, status user.AssessmentStatus) (int, error) {
	return 0, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role auth.Role, limit, offset int) ([]*user.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*user.User
	for _, u := range m.store {
		if u.Role == role {
			cp := *u
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
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

// -- Collaborator doubles --

type notice struct {
	DoctorID, PatientID, Message string
}

type mockNotifier struct {
	notices []notice
	fail    bool
}

func (m *mockNotifier) Notify(_ context.Context, doctorID, patientID, message string) error {
	if m.fail {
		return errors.New("notifications unavailable")
	}
	m.notices = append(m.notices, notice{doctorID, patientID, message})
	return nil
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

func (m *mockAuditor) count(action auditlog.Action) int {
	n := 0
	for _, ev := range m.events {
		if ev.Action == action {
			n++
		}
	}
	return n
}

// -- Fixture --

type fixture struct {
	svc         *Service
	assessments *mockAssessmentRepo
	users       *mockUserRepo
	notifier    *mockNotifier
	audit       *mockAuditor
	email       *notification.MockEmailSender
}

func newFixture() *fixture {
	f := &fixture{
		assessments: newMockAssessmentRepo(),
		users:       newMockUserRepo(),
		notifier:    &mockNotifier{},
		audit:       &mockAuditor{},
		email:       &notification.MockEmailSender{},
	}
	mailer := notification.NewMailer(f.email, "http://localhost:3000", zerolog.Nop())
	f.svc = NewService(f.assessments, f.users, f.notifier, f.audit, mailer)

	f.users.store["D1"] = &user.User{ID: "D1", Email: "doc@example.com", Role: auth.RoleDoctor, FirstName: "Dana", LastName: "Reyes"}
	f.users.store["P1"] = &user.User{
		ID: "P1", Email: "pat@example.com", Role: auth.RolePatient,
		FirstName: "Sam", LastName: "Lee", DoctorID: "D1", AssessmentStatus: user.StatusPending,
	}
	f.users.store["P2"] = &user.User{ID: "P2", Email: "solo@example.com", Role: auth.RolePatient, AssessmentStatus: user.StatusIdle}
	return f
}

// answersFor fills questions in order with 3s until each total is reached.
func answersFor(phq9, gad7 int) map[string]string {
	raw := make(map[string]string)
	fill := func(inst screening.Instrument, total int) {
		for _, id := range inst.QuestionIDs() {
			v := total
			if v > screening.MaxOptionValue {
				v = screening.MaxOptionValue
			}
			total -= v
			raw[inst.Key(id)] = strconv.Itoa(v)
		}
	}
	fill(screening.PHQ9, phq9)
	fill(screening.GAD7, gad7)
	return raw
}
