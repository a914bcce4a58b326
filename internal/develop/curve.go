// Package develop drives the time-based development of freshly ejected
// photos: a pure appearance curve over development progress, and a per-photo
// ticker that advances progress until the print is fully developed.
package develop

// Params holds the visual appearance parameters for a print at a given
// development progress.
type Params struct {
	Blur       float64 `json:"blur"`       // px, 10 -> 0
	Grayscale  float64 `json:"grayscale"`  // %, 100 -> 0
	Brightness float64 `json:"brightness"` // %, 150 -> 100
	Contrast   float64 `json:"contrast"`   // %, 80 -> 100
}

// Curve maps development progress p in [0,100] to appearance parameters.
// It is a pure function: no state, deterministic, and each parameter moves
// monotonically toward its fully developed value as p increases.
func Curve(p int) Params {
	fp := float64(p)
	return Params{
		Blur:       max0(10 - fp/10),
		Grayscale:  max0(100 - fp),
		Brightness: 100 + max0((100-fp)/2),
		Contrast:   80 + 0.2*fp,
	}
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
