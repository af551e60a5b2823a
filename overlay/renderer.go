// Package overlay draws pose markers and operator captions onto the
// view canvas.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"posecam/pkg/geometry"
)

// Caption rows inside the strip below the video, in pixels from the
// camera image baseline. Three rows fit the 100 px strip.
const (
	RowTop    = 20
	RowMid    = 50
	RowBottom = 80
)

// arrowSegments traces a unit arrow pointing screen-up: the shaft plus
// two head strokes, as (x1, y1, x2, y2) endpoint pairs in local
// coordinates.
var arrowSegments = [][4]float64{
	{0, 0, 0, -1},
	{0, -1, 0.1, -0.8},
	{0, -1, -0.1, -0.8},
}

// Renderer handles marker and caption drawing. One instance serves the
// whole session and carries the palette and font settings.
type Renderer struct {
	Guide color.RGBA // markers and guidance captions
	Alert color.RGBA // degraded-state captions

	font            gocv.HersheyFont
	fontScale       float64
	fontThickness   int
	markerThickness int
}

// NewRenderer creates a renderer with the standard palette: green for
// guidance, red for degraded states.
func NewRenderer() *Renderer {
	return &Renderer{
		Guide:           color.RGBA{0, 255, 0, 0},
		Alert:           color.RGBA{255, 0, 0, 0},
		font:            gocv.FontHersheySimplex,
		fontScale:       0.65,
		fontThickness:   1,
		markerThickness: 2,
	}
}

// Marker draws an oriented pose marker: a unit arrow scaled to half the
// object size, rotated to the pose angle, plus a circle of the object
// radius around the origin. The same marker serves detections and
// calibration targets.
func (r *Renderer) Marker(img *gocv.Mat, x, y, angle float64, objectSize int, c color.RGBA) {
	tr := geometry.MakeTransform2(float64(objectSize)/2, angle, x, y)
	for _, seg := range arrowSegments {
		p1 := tr.ApplyPoint(seg[0], seg[1])
		p2 := tr.ApplyPoint(seg[2], seg[3])
		gocv.Line(img, p1, p2, c, r.markerThickness)
	}
	gocv.Circle(img, image.Point{X: int(x), Y: int(y)}, objectSize/2, c, r.markerThickness)
}

// Caption writes one row of text into the strip below the video.
// baseline is the camera image height; row selects the strip line.
func (r *Renderer) Caption(img *gocv.Mat, text string, baseline, row int, c color.RGBA) {
	org := image.Point{X: 10, Y: baseline + row}
	gocv.PutText(img, text, org, r.font, r.fontScale, c, r.fontThickness)
}
