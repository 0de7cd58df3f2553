// Package geom holds the small value types that glimpse formats with
// dedicated built-in formatters: vectors, quaternions and colours.
package geom

import "math"

// Vec2 is a two-component vector.
type Vec2 struct {
	X, Y float64
}

// Vec3 is a three-component vector.
type Vec3 struct {
	X, Y, Z float64
}

// Vec4 is a four-component vector.
type Vec4 struct {
	X, Y, Z, W float64
}

// Quat is a rotation quaternion.
type Quat struct {
	X, Y, Z, W float64
}

// Identity returns the identity rotation.
func Identity() Quat {
	return Quat{W: 1}
}

// Euler returns the rotation as roll, pitch and yaw in degrees.
func (q Quat) Euler() Vec3 {
	sinr := 2 * (q.W*q.X + q.Y*q.Z)
	cosr := 1 - 2*(q.X*q.X+q.Y*q.Y)
	roll := math.Atan2(sinr, cosr)

	sinp := 2 * (q.W*q.Y - q.Z*q.X)
	var pitch float64
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	siny := 2 * (q.W*q.Z + q.X*q.Y)
	cosy := 1 - 2*(q.Y*q.Y+q.Z*q.Z)
	yaw := math.Atan2(siny, cosy)

	const deg = 180 / math.Pi
	return Vec3{X: roll * deg, Y: pitch * deg, Z: yaw * deg}
}

// Color is a linear RGBA colour with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// RGB returns an opaque colour.
func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b, A: 1}
}
