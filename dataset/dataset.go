package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// FileName is the dataset file written into the working directory. The
// external trainer reads it from there.
const FileName = "dataset.json"

// ErrComplete is returned by Capture once every slot has been filled.
var ErrComplete = errors.New("dataset: collection already complete")

// Origin is a labeled pose: position plus angle in radians.
type Origin struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// Object is one annotated object within a sample. The category is
// always 0; this harness collects a single object class.
type Object struct {
	Category int    `json:"category"`
	Origin   Origin `json:"origin"`
}

// Sample pairs a captured image file with its annotation.
type Sample struct {
	Image   string   `json:"image"`
	Objects []Object `json:"objects"`
}

// Collector accumulates one labeled sample per calibration slot.
// Labels come from the calibration pose the operator aligned the
// object to, never from detection.
type Collector struct {
	dir     string
	total   int
	cursor  int
	samples []Sample
}

// NewCollector starts an empty collection of total slots stored in dir.
func NewCollector(dir string, total int) *Collector {
	return &Collector{dir: dir, total: total}
}

// Cursor returns the index of the next slot to capture.
func (c *Collector) Cursor() int {
	return c.cursor
}

// Total returns the number of calibration slots.
func (c *Collector) Total() int {
	return c.total
}

// Done reports whether every slot has been captured.
func (c *Collector) Done() bool {
	return c.cursor >= c.total
}

// Samples returns the captured samples in capture order.
func (c *Collector) Samples() []Sample {
	return c.samples
}

// Capture persists the normalized frame for the current slot as
// image-<index>.png (pixel values scaled back to byte range) and
// appends the labeled sample. A capture past the last slot is refused
// with ErrComplete rather than indexing out of range.
func (c *Collector) Capture(normalized gocv.Mat, pose Pose) error {
	if c.Done() {
		return ErrComplete
	}

	name := fmt.Sprintf("image-%d.png", c.cursor)
	path := filepath.Join(c.dir, name)

	scaled := gocv.NewMat()
	defer scaled.Close()
	normalized.ConvertToWithParams(&scaled, gocv.MatTypeCV8UC3, 255, 0)
	if ok := gocv.IMWrite(path, scaled); !ok {
		return fmt.Errorf("dataset: write image %s failed", path)
	}

	c.samples = append(c.samples, Sample{
		Image: name,
		Objects: []Object{{
			Category: 0,
			Origin:   Origin{X: pose.X, Y: pose.Y, Angle: pose.Angle},
		}},
	})
	c.cursor++
	return nil
}

// Write persists the complete dataset, overwriting any previous one at
// the same path. The file is indented with a single space, the format
// the trainer's tooling expects.
func (c *Collector) Write() (string, error) {
	if !c.Done() {
		return "", fmt.Errorf("dataset: only %d of %d samples captured", c.cursor, c.total)
	}

	data, err := json.MarshalIndent(c.samples, "", " ")
	if err != nil {
		return "", fmt.Errorf("dataset: encode: %w", err)
	}
	path := filepath.Join(c.dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("dataset: write %s: %w", path, err)
	}
	return path, nil
}
