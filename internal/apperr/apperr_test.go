// Package apperr provides unit tests for application error codes.
package apperr

import (
	"errors"
	"fmt"
	"testing"
)

// TestNew verifies error construction and formatting.
func TestNew(t *testing.T) {
	err := New(ErrPhotoNotFound, "photo not found: abc")
	want := "[PHOTO_NOT_FOUND] photo not found: abc"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

// TestWrap verifies wrapped errors format and unwrap correctly.
func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap(ErrCaptionFailed, "caption request failed", inner)

	want := "[CAPTION_FAILED] caption request failed: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

// TestIs verifies code matching.
func TestIs(t *testing.T) {
	err := New(ErrDecodeFailed, "bad payload")

	if !Is(err, ErrDecodeFailed) {
		t.Error("Is() should match the error's code")
	}
	if Is(err, ErrExportFailed) {
		t.Error("Is() should not match a different code")
	}
	if Is(fmt.Errorf("plain"), ErrDecodeFailed) {
		t.Error("Is() should not match a non-AppError")
	}
}
