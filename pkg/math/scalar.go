package math

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Clamp01 clamps x to [0, 1].
func Clamp01(x float32) float32 {
	return mgl32.Clamp(x, 0, 1)
}

// BlendWeight returns where t sits between t0 and t1, clamped to [0, 1].
// Coincident timestamps blend fully to the later frame.
func BlendWeight(t0, t1, t float32) float32 {
	if mgl32.FloatEqual(t0, t1) {
		return 1
	}
	return Clamp01((t - t0) / (t1 - t0))
}

// Wrap folds t into [0, period). A non-positive period yields 0.
func Wrap(t, period float32) float32 {
	if period <= 0 {
		return 0
	}
	r := math32.Mod(t, period)
	if r < 0 {
		r += period
	}
	if r >= period {
		r = 0
	}
	return r
}

// NearlyEqual reports whether |a-b| <= eps.
func NearlyEqual(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}
