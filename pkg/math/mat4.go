package math

import "github.com/go-gl/mathgl/mgl32"

// Mat4 is a 4x4 matrix in column-major order (OpenGL compatible).
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 = mgl32.Mat4

// Identity returns an identity matrix.
func Identity() Mat4 {
	return mgl32.Ident4()
}

// Translate returns a translation matrix.
func Translate(v Vec3) Mat4 {
	return mgl32.Translate3D(v[0], v[1], v[2])
}

// Scale returns a scale matrix.
func Scale(v Vec3) Mat4 {
	return mgl32.Scale3D(v[0], v[1], v[2])
}

// TRS composes Translate(t) * Rotate(r) * Scale(s).
func TRS(t Vec3, r Quat, s Vec3) Mat4 {
	return Translate(t).Mul4(r.Mat4()).Mul4(Scale(s))
}

// Inverse returns the inverse of the matrix.
// Returns identity if the matrix is singular.
func Inverse(m Mat4) Mat4 {
	if m.Det() == 0 {
		return Identity()
	}
	return m.Inv()
}

// TransformPoint transforms a 3D point by m (assumes w=1).
func TransformPoint(m Mat4, p Vec3) Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// ApproxEqualMat4 reports whether every element of a and b differs by at most eps.
func ApproxEqualMat4(a, b Mat4, eps float32) bool {
	return a.ApproxEqualThreshold(b, eps)
}

// FromRowMajor builds a Mat4 from 16 values in row-major order.
func FromRowMajor(v [16]float32) Mat4 {
	return Mat4(v).Transpose()
}
