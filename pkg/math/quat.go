package math

import "github.com/go-gl/mathgl/mgl32"

// Quat represents a quaternion for 3D rotations.
// W is the scalar part, V the vector part.
type Quat = mgl32.Quat

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return mgl32.QuatIdent()
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	return mgl32.QuatRotate(angle, axis)
}

// QuatFromXYZW builds a quaternion from components stored as X, Y, Z, W.
func QuatFromXYZW(v [4]float32) Quat {
	return Quat{W: v[3], V: Vec3{v[0], v[1], v[2]}}
}

// Slerp performs spherical linear interpolation between two unit quaternions,
// always along the shorter arc. t is clamped to [0, 1] and the result is normalized.
func Slerp(a, b Quat, t float32) Quat {
	t = Clamp01(t)

	// q and -q encode the same rotation; flip b onto a's hemisphere
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, t).Normalize()
}

// QuatLen returns the quaternion norm.
func QuatLen(q Quat) float32 {
	return q.Len()
}

// SameRotation reports whether a and b encode the same rotation within eps,
// treating q and -q as equal.
func SameRotation(a, b Quat, eps float32) bool {
	return a.ApproxEqualThreshold(b, eps) || a.ApproxEqualThreshold(b.Scale(-1), eps)
}
