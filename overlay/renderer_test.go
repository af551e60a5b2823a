package overlay

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func blackCanvas(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

// greenNear reports whether any pixel in a small neighborhood has a lit
// green channel; drawing rasterization can land a pixel either side of
// the ideal coordinate.
func greenNear(m gocv.Mat, row, col int) bool {
	for r := row - 1; r <= row+1; r++ {
		for c := col - 1; c <= col+1; c++ {
			if r < 0 || c < 0 || r >= m.Rows() || c >= m.Cols() {
				continue
			}
			if m.GetVecbAt(r, c)[1] > 0 {
				return true
			}
		}
	}
	return false
}

func TestMarker(t *testing.T) {
	r := NewRenderer()

	t.Run("upright arrow and circle", func(t *testing.T) {
		canvas := blackCanvas(t, 200, 200)
		r.Marker(&canvas, 100, 100, 0, 60, r.Guide)

		// Shaft runs from the origin straight up to (100, 70).
		assert.True(t, greenNear(canvas, 85, 100), "arrow shaft")
		assert.True(t, greenNear(canvas, 71, 100), "arrow tip")
		// Circle of radius 30 around the origin.
		assert.True(t, greenNear(canvas, 100, 130), "circle right edge")
		assert.True(t, greenNear(canvas, 130, 100), "circle bottom edge")
		// Origin itself stays unpainted; the marker is an outline.
		assert.False(t, greenNear(canvas, 100, 118), "inside the circle")
	})

	t.Run("quarter turn points right", func(t *testing.T) {
		canvas := blackCanvas(t, 200, 200)
		r.Marker(&canvas, 100, 100, math.Pi/2, 60, r.Guide)

		assert.True(t, greenNear(canvas, 100, 115), "shaft after rotation")
		assert.True(t, greenNear(canvas, 100, 129), "tip after rotation")
		assert.False(t, greenNear(canvas, 85, 100), "no upright shaft")
	})
}

func TestCaption(t *testing.T) {
	r := NewRenderer()
	canvas := blackCanvas(t, 370, 361)

	r.Caption(&canvas, "Image #1 of 5", 270, RowTop, r.Guide)

	lit := 0
	for row := 270; row < 295; row++ {
		for col := 10; col < 200; col++ {
			if canvas.GetVecbAt(row, col)[1] > 0 {
				lit++
			}
		}
	}
	require.Greater(t, lit, 20, "caption rendered into the strip")

	// Nothing painted above the baseline.
	for row := 0; row < 270; row += 13 {
		for col := 0; col < 361; col += 7 {
			assert.Zero(t, canvas.GetVecbAt(row, col)[1])
		}
	}
}
