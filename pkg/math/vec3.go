// Package math provides the vector, quaternion and matrix helpers used by the
// skeletal animation code. Types are aliases of mathgl's mgl32 so values move
// freely between this package and code that uses mgl32 directly.
package math

import "github.com/go-gl/mathgl/mgl32"

// Vec3 is a 3D vector.
type Vec3 = mgl32.Vec3

// One returns the unit scale vector (1, 1, 1).
func One() Vec3 {
	return Vec3{1, 1, 1}
}

// LerpVec3 performs component-wise linear interpolation between two 3D vectors.
func LerpVec3(a, b Vec3, t float32) Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
