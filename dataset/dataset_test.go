package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// normalizedFrame builds a synthetic float frame in [0,1], the format
// capture receives from the normalization step.
func normalizedFrame(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0.25, 0.5, 0.75, 0), 24, 32, gocv.MatTypeCV32FC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestCollectorCapture(t *testing.T) {
	dir := t.TempDir()
	rig := DefaultRig()
	poses := rig.Poses(320, 240, 60)
	c := NewCollector(dir, rig.Len())

	frame := normalizedFrame(t)
	for i, pose := range poses {
		assert.Equal(t, i, c.Cursor())
		require.NoError(t, c.Capture(frame, pose))

		path := filepath.Join(dir, fmt.Sprintf("image-%d.png", i))
		_, err := os.Stat(path)
		assert.NoError(t, err, "captured image %d on disk", i)
	}
	assert.True(t, c.Done())

	t.Run("capture past the last slot is refused", func(t *testing.T) {
		err := c.Capture(frame, poses[0])
		assert.ErrorIs(t, err, ErrComplete)
		assert.Len(t, c.Samples(), rig.Len())
	})
}

func TestCaptureScalesBackToBytes(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector(dir, 1)
	frame := normalizedFrame(t)

	require.NoError(t, c.Capture(frame, Pose{X: 1, Y: 2}))

	img := gocv.IMRead(filepath.Join(dir, "image-0.png"), gocv.IMReadColor)
	defer img.Close()
	require.False(t, img.Empty())

	px := img.GetVecbAt(0, 0)
	assert.InDelta(t, 0.25*255, float64(px[0]), 1)
	assert.InDelta(t, 0.5*255, float64(px[1]), 1)
	assert.InDelta(t, 0.75*255, float64(px[2]), 1)
}

func TestCollectorWrite(t *testing.T) {
	dir := t.TempDir()
	rig := DefaultRig()
	poses := rig.Poses(320, 240, 60)
	c := NewCollector(dir, rig.Len())
	frame := normalizedFrame(t)

	t.Run("refused while incomplete", func(t *testing.T) {
		_, err := c.Write()
		assert.Error(t, err)
	})

	for _, pose := range poses {
		require.NoError(t, c.Capture(frame, pose))
	}

	path, err := c.Write()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// Single-space indentation, for eyeballing the file.
	assert.True(t, strings.Contains(string(raw), "\n {"))

	var got []Sample
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, rig.Len())
	for i, s := range got {
		assert.Equal(t, fmt.Sprintf("image-%d.png", i), s.Image)
		require.Len(t, s.Objects, 1)
		assert.Equal(t, 0, s.Objects[0].Category)
		assert.InDelta(t, poses[i].X, s.Objects[0].Origin.X, 1e-9)
		assert.InDelta(t, poses[i].Y, s.Objects[0].Origin.Y, 1e-9)
		assert.InDelta(t, poses[i].Angle, s.Objects[0].Origin.Angle, 1e-9)
	}
}
