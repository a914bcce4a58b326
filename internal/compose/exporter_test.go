// Package compose provides unit tests for the photo exporter.
package compose

import (
	"bytes"
	"context"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/kimhsiao/photowall/backend/internal/apperr"
	"github.com/kimhsiao/photowall/backend/internal/models"
)

// testPhoto builds a photo with a decodable JPEG payload.
func testPhoto(t *testing.T, caption string) *models.Photo {
	t.Helper()
	img := imaging.New(60, 80, image.White.C)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}

	return &models.Photo{
		ID:        "test-photo",
		Image:     buf.Bytes(),
		Caption:   caption,
		Timestamp: "Aug 29, 2026 3:04 PM",
		State:     models.StateDeveloped,
	}
}

// =====================================================
// Export Tests
// =====================================================

// TestExport_dimensions verifies the layout formula at the default scale.
func TestExport_dimensions(t *testing.T) {
	exporter := NewExporter(nil)
	photo := testPhoto(t, "hello")

	result, err := exporter.Export(context.Background(), photo)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	const s = 2
	wantWidth := baseWidth * s
	if result.Width != wantWidth {
		t.Errorf("Width = %d, want %d", result.Width, wantWidth)
	}

	// Short caption: one line, so the minimum caption block applies.
	pad := basePadding * s
	innerWidth := wantWidth - 2*pad
	photoHeight := innerWidth * 4 / 3
	wantHeight := pad + photoHeight + baseMinCaption*s + pad
	if result.Height != wantHeight {
		t.Errorf("Height = %d, want %d", result.Height, wantHeight)
	}

	// The output is a decodable JPEG of exactly those dimensions.
	decoded, format, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("output did not decode: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("output format = %q, want jpeg", format)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != result.Width || bounds.Dy() != result.Height {
		t.Errorf("decoded size = %dx%d, want %dx%d",
			bounds.Dx(), bounds.Dy(), result.Width, result.Height)
	}
}

// TestExport_longCaptionGrowsCanvas verifies the caption block expands with
// wrapped lines.
func TestExport_longCaptionGrowsCanvas(t *testing.T) {
	exporter := NewExporter(nil)

	short, err := exporter.Export(context.Background(), testPhoto(t, "hi"))
	if err != nil {
		t.Fatalf("Export(short) error = %v", err)
	}

	long, err := exporter.Export(context.Background(), testPhoto(t,
		"a very long caption that will certainly need to wrap across "+
			"several lines of the export canvas before it runs out of words"))
	if err != nil {
		t.Fatalf("Export(long) error = %v", err)
	}

	if long.Height <= short.Height {
		t.Errorf("long caption height %d should exceed short caption height %d",
			long.Height, short.Height)
	}
	if long.Width != short.Width {
		t.Errorf("caption length must not change width: %d vs %d",
			long.Width, short.Width)
	}
}

// TestExport_filename verifies the <app-prefix>-<timestamp>.<ext> pattern.
func TestExport_filename(t *testing.T) {
	exporter := NewExporter(nil)
	photo := testPhoto(t, "hello")

	result, err := exporter.Export(context.Background(), photo)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if !strings.HasPrefix(result.Filename, FilenamePrefix+"-") {
		t.Errorf("Filename = %q, want prefix %q", result.Filename, FilenamePrefix+"-")
	}
	if !strings.HasSuffix(result.Filename, ".jpg") {
		t.Errorf("Filename = %q, want .jpg extension", result.Filename)
	}
	if strings.ContainsAny(result.Filename, " ,:") {
		t.Errorf("Filename = %q contains unsanitized characters", result.Filename)
	}
}

// TestExport_decodeFailure verifies a corrupt payload aborts the export
// with DECODE_FAILED and produces no output.
func TestExport_decodeFailure(t *testing.T) {
	exporter := NewExporter(nil)
	photo := &models.Photo{
		ID:        "corrupt",
		Image:     []byte("definitely not a jpeg"),
		Timestamp: "Aug 29, 2026 3:04 PM",
	}

	result, err := exporter.Export(context.Background(), photo)
	if !apperr.Is(err, apperr.ErrDecodeFailed) {
		t.Errorf("Export() error = %v, want DECODE_FAILED", err)
	}
	if result != nil {
		t.Error("failed export must not return partial output")
	}
}

// TestExport_emptyPayload verifies a photo without image data fails fast.
func TestExport_emptyPayload(t *testing.T) {
	exporter := NewExporter(nil)
	photo := &models.Photo{ID: "empty", Timestamp: "Aug 29, 2026 3:04 PM"}

	_, err := exporter.Export(context.Background(), photo)
	if !apperr.Is(err, apperr.ErrDecodeFailed) {
		t.Errorf("Export() error = %v, want DECODE_FAILED", err)
	}
}

// TestExport_canceledContext verifies the decode step honors an already
// canceled context instead of blocking.
func TestExport_canceledContext(t *testing.T) {
	exporter := NewExporter(&Config{DecodeTimeout: time.Minute})
	photo := testPhoto(t, "hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Decode may still win the race on a tiny image; only a hang or a
	// wrong error code is a failure.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := exporter.Export(ctx, photo); err != nil {
			if !apperr.Is(err, apperr.ErrDecodeFailed) {
				t.Errorf("Export() error = %v, want DECODE_FAILED", err)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Export() hung on canceled context")
	}
}

// =====================================================
// Filename Tests
// =====================================================

// TestFilename verifies timestamp sanitization.
func TestFilename(t *testing.T) {
	got := Filename("Aug 29, 2026 3:04 PM")
	want := "photowall-aug-29-2026-3-04-pm.jpg"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}
