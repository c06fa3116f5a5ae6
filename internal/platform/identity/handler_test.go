package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/mindful/mindful/internal/platform/apperr"
	"github.com/mindful/mindful/internal/platform/auth"
	"github.com/mindful/mindful/internal/platform/validation"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func postToken(h *Handler, body string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	e.Validator = validation.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, h.Token(e.NewContext(req, rec))
}

func TestHandler_Token(t *testing.T) {
	svc := newTestService()
	_, password, err := svc.Create(context.Background(), "doc@example.com", auth.RoleDoctor)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHandler(svc, TokenConfig{SigningKey: testKey, Issuer: "mindful"})

	rec, err := postToken(h, `{"email":"DOC@example.com","password":"`+password+`"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.TokenType != "Bearer" || res.ExpiresIn != 8*3600 {
		t.Errorf("unexpected response: %+v", res)
	}

	claims := &auth.Claims{}
	_, err = jwt.ParseWithClaims(res.AccessToken, claims, func(*jwt.Token) (interface{}, error) { return testKey, nil })
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Role != auth.RoleDoctor || claims.Email != "doc@example.com" || claims.Issuer != "mindful" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestHandler_Token_Rejected(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, _, err := svc.Create(ctx, "doc@example.com", auth.RoleDoctor); err != nil {
		t.Fatal(err)
	}
	if err := svc.Ensure(ctx, "ext-1", "ext@example.com", auth.RolePatient); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(svc, TokenConfig{SigningKey: testKey})

	for _, body := range []string{
		`{"email":"doc@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"x"}`,
		`{"email":"ext@example.com","password":""}`,
		`{"email":"ext@example.com","password":"anything"}`,
	} {
		_, err := postToken(h, body)
		if !apperr.IsForbidden(err) && !apperr.IsValidation(err) {
			t.Errorf("%s: expected rejection, got %v", body, err)
		}
	}
}
