package math

import "math"

// Quat is a rotation quaternion. W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatFromAxisAngle returns the rotation of angle radians about a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	s, c := math.Sincos(float64(angle) / 2)
	v := axis.Scale(float32(s))
	return Quat{X: v.X, Y: v.Y, Z: v.Z, W: float32(c)}
}

// QuatToward returns the rotation of angle radians that turns from toward
// to, both unit vectors. Opposite vectors turn about an arbitrary
// perpendicular axis.
func QuatToward(from, to Vec3, angle float32) Quat {
	axis := from.Cross(to)
	if axis.LengthSquared() < 1e-12 {
		axis = from.Perpendicular()
	} else {
		axis = axis.Normalize()
	}
	return QuatFromAxisAngle(axis, angle)
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Rotate applies the rotation to a vector.
func (q Quat) Rotate(v Vec3) Vec3 {
	// v' = v + 2w(u x v) + 2(u x (u x v)), with u the vector part
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}
