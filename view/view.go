// Package view normalizes heterogeneous camera frames into the
// fixed-size annotated canvas shown to the operator.
package view

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrNotColor marks a frame that is not 3-channel color. A miswired
// capture cannot be recovered mid-session, so callers treat this as
// fatal.
var ErrNotColor = errors.New("view: frame is not a 3-channel color image")

const (
	// captionMargin is the strip below the video reserved for caption
	// text, tall enough for three rows.
	captionMargin = 100

	// maxCanvasWidth bounds the window width regardless of camera
	// resolution.
	maxCanvasWidth = 640
)

// View folds raw camera frames into a display canvas. The scale factor
// is computed from the first valid frame and frozen for the session:
// six object sizes span the longer frame edge, which keeps the
// on-screen target a stable, hand-sized thing to aim at no matter what
// the native camera resolution is.
type View struct {
	objectSize int
	scale      float64
	canvasRows int
	canvasCols int
	ready      bool

	mirrored gocv.Mat
	camera   gocv.Mat
	canvas   gocv.Mat
}

// New creates a view for the given object size in pixels.
func New(objectSize int) *View {
	return &View{
		objectSize: objectSize,
		mirrored:   gocv.NewMat(),
		camera:     gocv.NewMat(),
		canvas:     gocv.NewMat(),
	}
}

// Build runs one frame through the pipeline: mirror, scale by the
// frozen factor, composite into a zeroed canvas above the caption
// strip. Overlays are drawn onto Canvas by the caller afterwards.
func (v *View) Build(frame gocv.Mat) error {
	if frame.Channels() != 3 {
		return fmt.Errorf("%w (%d channels)", ErrNotColor, frame.Channels())
	}

	// Selfie-style camera: mirror so operator movement reads naturally.
	gocv.Flip(frame, &v.mirrored, 1)

	if !v.ready {
		longest := frame.Rows()
		if frame.Cols() > longest {
			longest = frame.Cols()
		}
		v.scale = float64(v.objectSize*6) / float64(longest)
		v.canvasRows = int(v.scale*float64(frame.Rows())) + captionMargin
		v.canvasCols = int(v.scale*float64(frame.Cols())) + 1
		if v.canvasCols > maxCanvasWidth {
			v.canvasCols = maxCanvasWidth
		}
		v.canvas.Close()
		v.canvas = gocv.NewMatWithSize(v.canvasRows, v.canvasCols, gocv.MatTypeCV8UC3)
		v.ready = true
	}

	gocv.Resize(v.mirrored, &v.camera, image.Point{}, v.scale, v.scale, gocv.InterpolationLinear)

	v.canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))

	// Clip to the canvas bounds; an oversized object_size can push the
	// scaled frame past the width cap.
	w := v.camera.Cols()
	if w > v.canvasCols {
		w = v.canvasCols
	}
	h := v.camera.Rows()
	if h > v.canvasRows {
		h = v.canvasRows
	}

	src := v.camera.Region(image.Rect(0, 0, w, h))
	defer src.Close()
	dst := v.canvas.Region(image.Rect(0, 0, w, h))
	defer dst.Close()
	src.CopyTo(&dst)

	return nil
}

// Ready reports whether the first frame has frozen the geometry.
func (v *View) Ready() bool {
	return v.ready
}

// Scale returns the frozen display scale factor.
func (v *View) Scale() float64 {
	return v.scale
}

// Camera returns the mirrored, scaled camera image. This is the model
// input and capture source; the mat is owned by the view.
func (v *View) Camera() gocv.Mat {
	return v.camera
}

// Canvas returns the compositing target overlays draw onto and the
// window displays. The mat is owned by the view.
func (v *View) Canvas() gocv.Mat {
	return v.canvas
}

// CameraWidth returns the scaled camera image width.
func (v *View) CameraWidth() int {
	return v.camera.Cols()
}

// CameraHeight returns the scaled camera image height. Captions are
// positioned relative to this baseline.
func (v *View) CameraHeight() int {
	return v.camera.Rows()
}

// Close releases the mats owned by the view.
func (v *View) Close() {
	v.mirrored.Close()
	v.camera.Close()
	v.canvas.Close()
}
