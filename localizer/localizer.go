// Package localizer loads the trained pose model, evaluates it on
// normalized camera frames, and drives the external trainer that
// produces the model artifact.
package localizer

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"posecam/config"
)

// Typed load failures, so callers can tell a missing config from a
// missing model artifact.
var (
	ErrConfigMissing = errors.New("localizer: config missing or invalid")
	ErrModelMissing  = errors.New("localizer: model artifact missing or unloadable")
)

// outputStride is the width of one decoded network output row:
// [x, y, sin, cos, confidence].
const outputStride = 5

// Object is one detected pose.
type Object struct {
	X     float64
	Y     float64
	Angle float64 // radians
	Score float32
}

// Predictor evaluates the localizer network on normalized frames.
type Predictor struct {
	net        gocv.Net
	inputSize  int
	confidence float32
}

// New constructs a predictor from the installed working-directory
// config. The model artifact is resolved relative to the config file.
func New(cfgPath string) (*Predictor, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMissing, err)
	}

	modelPath := cfg.ModelFile
	if !filepath.IsAbs(modelPath) {
		modelPath = filepath.Join(filepath.Dir(cfgPath), modelPath)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelMissing, err)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s did not load", ErrModelMissing, modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Predictor{
		net:        net,
		inputSize:  cfg.InputSize,
		confidence: float32(cfg.Confidence),
	}, nil
}

// Predict runs the network over a normalized frame and decodes the
// detections. The frame is blobbed to the square network input size;
// decoded positions land in the frame's pixel space.
func (p *Predictor) Predict(input gocv.Mat) ([]Object, error) {
	blob := gocv.BlobFromImage(input, 1.0, image.Pt(p.inputSize, p.inputSize), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	output := p.net.Forward("")
	defer output.Close()

	return p.decode(output, float64(input.Cols()), float64(input.Rows()))
}

// decode flattens the raw network output into detections. The output
// must hold whole rows of [x, y, sin, cos, confidence]; x and y are
// normalized coordinates scaled to width and height. Rows below the
// confidence threshold are dropped.
func (p *Predictor) decode(output gocv.Mat, width, height float64) ([]Object, error) {
	total := output.Total()
	if total == 0 || total%outputStride != 0 {
		return nil, fmt.Errorf("localizer: unexpected output shape %v", output.Size())
	}
	rows := total / outputStride
	flat := output.Reshape(1, rows)
	defer flat.Close()

	var objects []Object
	for i := 0; i < rows; i++ {
		score := flat.GetFloatAt(i, 4)
		if score < p.confidence {
			continue
		}
		sin := float64(flat.GetFloatAt(i, 2))
		cos := float64(flat.GetFloatAt(i, 3))
		objects = append(objects, Object{
			X:     float64(flat.GetFloatAt(i, 0)) * width,
			Y:     float64(flat.GetFloatAt(i, 1)) * height,
			Angle: math.Atan2(sin, cos),
			Score: score,
		})
	}
	return objects, nil
}

// Close releases the network.
func (p *Predictor) Close() error {
	return p.net.Close()
}

// Normalize converts a frame to the model's input conditioning:
// float32 in [0,1] with a square-root gamma that brightens shadows.
// The caller owns the returned mat. Captured training images and live
// detection input both run through this function; the model must never
// see differently conditioned pixels between training and inference.
func Normalize(src gocv.Mat) gocv.Mat {
	scaled := gocv.NewMat()
	defer scaled.Close()
	src.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	out := gocv.NewMat()
	gocv.Pow(scaled, 0.5, &out)
	return out
}
