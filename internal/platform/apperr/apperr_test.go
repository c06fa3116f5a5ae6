package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("note", "too long"), http.StatusBadRequest},
		{"not found", NotFound("Assessment not found."), http.StatusNotFound},
		{"wrapped sentinel", fmt.Errorf("get user: %w", ErrNotFound), http.StatusNotFound},
		{"conflict", Conflict("linked elsewhere"), http.StatusConflict},
		{"forbidden", Forbidden("nope"), http.StatusForbidden},
		{"dependency", Dependency("persist assessment", errors.New("boom")), http.StatusBadGateway},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLift(t *testing.T) {
	if err := Lift(nil, "x", "y"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	err := Lift(fmt.Errorf("scan: %w", ErrNotFound), "load patient", "Patient not found.")
	if !IsNotFound(err) || err.Error() != "Patient not found." {
		t.Errorf("expected NotFound with message, got %v", err)
	}

	err = Lift(errors.New("connection reset"), "load patient", "Patient not found.")
	if !IsDependency(err) {
		t.Errorf("expected dependency error, got %v", err)
	}

	conflict := Conflict("already linked")
	if got := Lift(conflict, "x", "y"); got != conflict {
		t.Errorf("expected typed error to pass through, got %v", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := fmt.Errorf("submit: %w", Dependency("update patient", cause))
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if KindOf(err) != KindDependency {
		t.Errorf("expected dependency kind, got %q", KindOf(err))
	}
}

func TestHTTPErrorHandler_HidesDependencyCause(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(zerolog.Nop())(Dependency("persist assessment", errors.New("password=hunter2")), c)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hunter2") {
		t.Errorf("cause leaked to client: %s", rec.Body.String())
	}
}

func TestHTTPErrorHandler_Validation(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(zerolog.Nop())(Validation("additionalContext", "must be at most 500 characters"), c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"additionalContext"`) {
		t.Errorf("expected field in body, got %s", rec.Body.String())
	}
}
