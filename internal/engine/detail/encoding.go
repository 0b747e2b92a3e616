package detail

import (
	gomath "math"

	"github.com/Faultbox/voxel-detail/pkg/math"
)

// EncodeNormalRaw quantizes each component from [-1,1] to [0,255].
func EncodeNormalRaw(n math.Vec3) [3]byte {
	return [3]byte{snormToByte(n.X), snormToByte(n.Y), snormToByte(n.Z)}
}

// DecodeNormalRaw is the inverse of EncodeNormalRaw, renormalized.
func DecodeNormalRaw(b [3]byte) math.Vec3 {
	return math.Vec3{X: byteToSnorm(b[0]), Y: byteToSnorm(b[1]), Z: byteToSnorm(b[2])}.Normalize()
}

// OctahedralEncode maps a unit vector to the [-1,1] square.
func OctahedralEncode(n math.Vec3) math.Vec2 {
	l1 := absf(n.X) + absf(n.Y) + absf(n.Z)
	if l1 == 0 {
		return math.Vec2{}
	}
	p := math.Vec2{X: n.X, Y: n.Y}.Scale(1 / l1)
	if n.Z < 0 {
		// Fold the lower hemisphere over the diagonals
		a := p.Abs()
		p = math.Vec2{
			X: (1 - a.Y) * signNotZero(p.X),
			Y: (1 - a.X) * signNotZero(p.Y),
		}
	}
	return p
}

// OctahedralDecode is the inverse of OctahedralEncode.
func OctahedralDecode(p math.Vec2) math.Vec3 {
	n := math.Vec3{X: p.X, Y: p.Y, Z: 1 - p.L1Norm()}
	if n.Z < 0 {
		n.X, n.Y = (1-absf(p.Y))*signNotZero(p.X), (1-absf(p.X))*signNotZero(p.Y)
	}
	return n.Normalize()
}

// EncodeNormalOctahedral packs a unit vector in two bytes.
func EncodeNormalOctahedral(n math.Vec3) [2]byte {
	p := OctahedralEncode(n)
	return [2]byte{snormToByte(p.X), snormToByte(p.Y)}
}

// DecodeNormalOctahedral is the inverse of EncodeNormalOctahedral.
func DecodeNormalOctahedral(b [2]byte) math.Vec3 {
	return OctahedralDecode(math.Vec2{X: byteToSnorm(b[0]), Y: byteToSnorm(b[1])})
}

// ClampNormalDeviation bounds the angle between n and ref. When the angle
// exceeds maxAngle, the result is ref rotated toward n by exactly maxAngle,
// which keeps the direction of the deviation. Both inputs must be unit
// vectors.
func ClampNormalDeviation(n, ref math.Vec3, maxAngle float32) math.Vec3 {
	angle := ref.AngleTo(n)
	if angle <= maxAngle {
		return n
	}
	return math.QuatToward(ref, n, maxAngle).Rotate(ref).Normalize()
}

func snormToByte(v float32) byte {
	f := (float64(v)*0.5+0.5)*255 + 0.5
	if f <= 0 {
		return 0
	}
	if f >= 255 {
		return 255
	}
	return byte(gomath.Floor(f))
}

func byteToSnorm(b byte) float32 {
	return float32(b)/255*2 - 1
}

func signNotZero(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
