package inbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mindful/mindful/internal/platform/auth"
)

// -- Mock Repository --

type mockNotificationRepo struct {
	items map[string]*Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{items: make(map[string]*Notification)}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *Notification) error {
	m.items[n.ID] = n
	return nil
}

func (m *mockNotificationRepo) ListByDoctor(_ context.Context, doctorID string, limit, offset int) ([]*Notification, int, error) {
	var result []*Notification
	for _, n := range m.items {
		if n.DoctorID == doctorID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := len(result)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return result[offset:end], total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, doctorID string) (int, error) {
	n := 0
	for _, item := range m.items {
		if item.DoctorID == doctorID && !item.Read {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, doctorID string) (int, error) {
	n := 0
	for _, item := range m.items {
		if item.DoctorID == doctorID && !item.Read {
			item.Read = true
			n++
		}
	}
	return n, nil
}

func newTestService() *Service {
	return NewService(newMockNotificationRepo())
}

// -- Service Tests --

func TestNotify(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if err := svc.Notify(ctx, "D1", "P1", "Sam Lee has completed their assessment."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, total, err := svc.List(ctx, "D1", 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || items[0].Read || items[0].PatientID != "P1" || items[0].ID == "" {
		t.Errorf("unexpected notification %+v", items[0])
	}
}

func TestNotify_Validation(t *testing.T) {
	svc := newTestService()
	if err := svc.Notify(context.Background(), "", "P1", "msg"); err == nil {
		t.Error("expected error for missing doctor")
	}
	if err := svc.Notify(context.Background(), "D1", "P1", ""); err == nil {
		t.Error("expected error for missing message")
	}
}

func TestMarkAllRead(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = svc.Notify(ctx, "D1", "P1", "done")
	}
	_ = svc.Notify(ctx, "D2", "P9", "done")

	n, err := svc.MarkAllRead(ctx, "D1")
	if err != nil || n != 3 {
		t.Fatalf("MarkAllRead = %d, %v", n, err)
	}
	if unread, _ := svc.CountUnread(ctx, "D1"); unread != 0 {
		t.Errorf("expected 0 unread, got %d", unread)
	}
	if unread, _ := svc.CountUnread(ctx, "D2"); unread != 1 {
		t.Errorf("other doctor's notifications changed")
	}
	if n, _ := svc.MarkAllRead(ctx, "D1"); n != 0 {
		t.Errorf("second call updated %d", n)
	}
}

// -- Handler Tests --

func TestHandler_List(t *testing.T) {
	svc := newTestService()
	repo := svc.notifications.(*mockNotificationRepo)
	base := time.Now()
	for i, msg := range []string{"older", "newer"} {
		repo.items[msg] = &Notification{ID: msg, DoctorID: "D1", Message: msg, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
	}
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{ID: "D1", Role: auth.RoleDoctor}))
	rec := httptest.NewRecorder()

	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Notifications struct {
			Data  []Notification `json:"data"`
			Total int            `json:"total"`
		} `json:"notifications"`
		Unread int `json:"unread"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Notifications.Total != 2 || body.Unread != 2 {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if body.Notifications.Data[0].Message != "newer" {
		t.Error("expected newest first")
	}
}

func TestHandler_MarkAllRead(t *testing.T) {
	svc := newTestService()
	_ = svc.Notify(context.Background(), "D1", "P1", "done")
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{ID: "D1", Role: auth.RoleDoctor}))
	rec := httptest.NewRecorder()

	if err := h.MarkAllRead(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Body.String() != "{\"updated\":1}\n" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}
