package validation

import (
	"errors"
	"testing"

	"github.com/mindful/mindful/internal/platform/apperr"
)

type sample struct {
	Email    string `json:"patientEmail" validate:"required,email"`
	Category string `json:"category" validate:"omitempty,oneof=Crisis Coping"`
	Note     string `json:"note" validate:"max=5"`
}

func TestValidate(t *testing.T) {
	v := New()

	if err := v.Validate(&sample{Email: "a@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		in    sample
		field string
	}{
		{"missing email", sample{}, "patientEmail"},
		{"bad email", sample{Email: "nope"}, "patientEmail"},
		{"bad category", sample{Email: "a@example.com", Category: "Other"}, "category"},
		{"long note", sample{Email: "a@example.com", Note: "toolong"}, "note"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.in)
			var e *apperr.Error
			if !errors.As(err, &e) || e.Kind != apperr.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if e.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, e.Field)
			}
		})
	}
}
