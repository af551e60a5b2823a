// Package geometry provides the 2-D similarity transform used to place
// oriented marker shapes and calibration targets in canvas coordinates.
package geometry

import (
	"image"
	"math"
)

// Transform2 is a 2-D similarity transform (uniform scale, rotation,
// translation) in 2x3 affine form:
//
//	| a  -b  tx |
//	| b   a  ty |
//
// with a = scale*cos(angle) and b = scale*sin(angle). Angles are in
// radians; the image y axis points down, so positive angles rotate
// clockwise on screen.
type Transform2 struct {
	A, B, TX, TY float64
}

// MakeTransform2 builds the transform that scales a local point by scale,
// rotates it by angle and translates it to (tx, ty).
func MakeTransform2(scale, angle, tx, ty float64) Transform2 {
	return Transform2{
		A:  scale * math.Cos(angle),
		B:  scale * math.Sin(angle),
		TX: tx,
		TY: ty,
	}
}

// Apply maps a local point into canvas coordinates.
func (t Transform2) Apply(px, py float64) (float64, float64) {
	return t.A*px - t.B*py + t.TX, t.B*px + t.A*py + t.TY
}

// ApplyPoint maps a local point and truncates to integer pixel
// coordinates for drawing.
func (t Transform2) ApplyPoint(px, py float64) image.Point {
	x, y := t.Apply(px, py)
	return image.Point{X: int(x), Y: int(y)}
}
