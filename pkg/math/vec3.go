// Package math provides the vector and rotation types shared by the mesher,
// the voxel field and the detail texture generator.
package math

import "math"

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Neg returns -v.
func (v Vec3) Neg() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// LengthSquared returns the squared magnitude.
func (v Vec3) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Normalize returns a unit vector.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// Abs returns the component-wise absolute value.
func (v Vec3) Abs() Vec3 {
	return Vec3{absf(v.X), absf(v.Y), absf(v.Z)}
}

// Get returns the component at axis 0, 1 or 2.
func (v Vec3) Get(axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// With returns a copy of v with the component at axis replaced.
func (v Vec3) With(axis int, value float32) Vec3 {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// LongestAxis returns the index of the component with the largest absolute
// value. Ties resolve to the lowest index.
func (v Vec3) LongestAxis() int {
	a := v.Abs()
	if a.X >= a.Y && a.X >= a.Z {
		return 0
	}
	if a.Y >= a.Z {
		return 1
	}
	return 2
}

// AngleTo returns the unsigned angle in radians between v and other.
func (v Vec3) AngleTo(other Vec3) float32 {
	// atan2 of |cross| and dot stays accurate for nearly parallel vectors,
	// where acos of the dot product loses precision.
	c := v.Cross(other).Length()
	d := v.Dot(other)
	return float32(math.Atan2(float64(c), float64(d)))
}

// Perpendicular returns a unit vector orthogonal to v.
func (v Vec3) Perpendicular() Vec3 {
	a := v.Abs()
	var other Vec3
	if a.X <= a.Y && a.X <= a.Z {
		other = Vec3{1, 0, 0}
	} else if a.Y <= a.Z {
		other = Vec3{0, 1, 0}
	} else {
		other = Vec3{0, 0, 1}
	}
	return v.Cross(other).Normalize()
}

// Floor returns the component-wise floor as an integer vector.
func (v Vec3) Floor() Vec3i {
	return Vec3i{
		int(math.Floor(float64(v.X))),
		int(math.Floor(float64(v.Y))),
		int(math.Floor(float64(v.Z))),
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
