package math

import "fmt"

// Vec3i is an integer 3D vector, used for voxel and cell coordinates.
type Vec3i struct {
	X, Y, Z int
}

// Add returns v + other.
func (v Vec3i) Add(other Vec3i) Vec3i {
	return Vec3i{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3i) Sub(other Vec3i) Vec3i {
	return Vec3i{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Mul returns v scaled by an integer factor.
func (v Vec3i) Mul(s int) Vec3i {
	return Vec3i{v.X * s, v.Y * s, v.Z * s}
}

// Shr divides each component by 2^n, rounding toward negative infinity.
func (v Vec3i) Shr(n int) Vec3i {
	return Vec3i{v.X >> n, v.Y >> n, v.Z >> n}
}

// Volume returns X*Y*Z.
func (v Vec3i) Volume() int {
	return v.X * v.Y * v.Z
}

// ToVec3 converts to a float vector.
func (v Vec3i) ToVec3() Vec3 {
	return Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// String formats the vector as "(x, y, z)".
func (v Vec3i) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}
