// Package develop provides unit tests for the development appearance curve.
package develop

import "testing"

// TestCurve_formulas verifies the exact curve values at fixed points.
func TestCurve_formulas(t *testing.T) {
	tests := []struct {
		p    int
		want Params
	}{
		{0, Params{Blur: 10, Grayscale: 100, Brightness: 150, Contrast: 80}},
		{25, Params{Blur: 7.5, Grayscale: 75, Brightness: 137.5, Contrast: 85}},
		{50, Params{Blur: 5, Grayscale: 50, Brightness: 125, Contrast: 90}},
		{75, Params{Blur: 2.5, Grayscale: 25, Brightness: 112.5, Contrast: 95}},
		{100, Params{Blur: 0, Grayscale: 0, Brightness: 100, Contrast: 100}},
	}

	for _, tt := range tests {
		got := Curve(tt.p)
		if got != tt.want {
			t.Errorf("Curve(%d) = %+v, want %+v", tt.p, got, tt.want)
		}
	}
}

// TestCurve_monotonic verifies every parameter moves monotonically toward
// its fully developed value as progress increases.
func TestCurve_monotonic(t *testing.T) {
	prev := Curve(0)
	for p := 1; p <= 100; p++ {
		cur := Curve(p)
		if cur.Blur > prev.Blur {
			t.Fatalf("Blur increased at p=%d: %v -> %v", p, prev.Blur, cur.Blur)
		}
		if cur.Grayscale > prev.Grayscale {
			t.Fatalf("Grayscale increased at p=%d: %v -> %v", p, prev.Grayscale, cur.Grayscale)
		}
		if cur.Brightness > prev.Brightness {
			t.Fatalf("Brightness increased at p=%d: %v -> %v", p, prev.Brightness, cur.Brightness)
		}
		if cur.Contrast < prev.Contrast {
			t.Fatalf("Contrast decreased at p=%d: %v -> %v", p, prev.Contrast, cur.Contrast)
		}
		prev = cur
	}
}

// TestCurve_deterministic verifies repeated evaluation yields identical
// values.
func TestCurve_deterministic(t *testing.T) {
	for p := 0; p <= 100; p += 10 {
		if Curve(p) != Curve(p) {
			t.Fatalf("Curve(%d) is not deterministic", p)
		}
	}
}
