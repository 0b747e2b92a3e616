package math

// Vec2 is a 2D vector, used for octahedral normal coordinates.
type Vec2 struct {
	X, Y float32
}

// Scale returns v * s.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Abs returns the component-wise absolute value.
func (v Vec2) Abs() Vec2 {
	return Vec2{absf(v.X), absf(v.Y)}
}

// L1Norm returns |X| + |Y|.
func (v Vec2) L1Norm() float32 {
	return absf(v.X) + absf(v.Y)
}

// Vec2i is an integer 2D vector, used for image sizes and pixel positions.
type Vec2i struct {
	X, Y int
}

// Add returns v + other.
func (v Vec2i) Add(other Vec2i) Vec2i {
	return Vec2i{v.X + other.X, v.Y + other.Y}
}

// Area returns X*Y.
func (v Vec2i) Area() int {
	return v.X * v.Y
}
