// Package id provides unit tests for UUID generation and validation.
package id

import "testing"

// TestNew_valid verifies generated ids are valid v4 UUIDs.
func TestNew_valid(t *testing.T) {
	for i := 0; i < 100; i++ {
		s := New()
		if !IsValid(s) {
			t.Fatalf("New() = %q, not a valid UUID v4", s)
		}
	}
}

// TestNew_unique verifies generated ids do not collide.
func TestNew_unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := New()
		if seen[s] {
			t.Fatalf("New() produced duplicate id %q", s)
		}
		seen[s] = true
	}
}

// TestIsValid verifies format validation.
func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid v4", "123e4567-e89b-42d3-a456-426614174000", true},
		{"empty", "", false},
		{"no dashes", "123e4567e89b42d3a456426614174000", false},
		{"wrong version", "123e4567-e89b-12d3-a456-426614174000", false},
		{"wrong variant", "123e4567-e89b-42d3-c456-426614174000", false},
		{"garbage", "not-a-uuid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.input); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestValidate verifies the error form.
func TestValidate(t *testing.T) {
	if err := Validate(New()); err != nil {
		t.Errorf("Validate(New()) error = %v", err)
	}
	if err := Validate("bad"); err == nil {
		t.Error("Validate(\"bad\") should return an error")
	}
}
