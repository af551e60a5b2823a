// Package dataset generates calibration poses and accumulates the
// labeled samples a collection session produces.
package dataset

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Pose is one calibration target in scaled-frame coordinates.
type Pose struct {
	X     float64
	Y     float64
	Angle float64 // radians
}

// PoseSpec places a pose relative to the frame: a position as a frame
// fraction plus a signed inset in object-size multiples. AngleDeg,
// when present, pins the pose angle; otherwise the rig assigns
// 2π·index/N.
type PoseSpec struct {
	FX       float64  `yaml:"fx"`
	FY       float64  `yaml:"fy"`
	InsetX   float64  `yaml:"inset_x"`
	InsetY   float64  `yaml:"inset_y"`
	AngleDeg *float64 `yaml:"angle_deg,omitempty"`
}

// Rig is an ordered list of pose specs. Alternate calibration layouts
// are a rig file away; the code never changes.
type Rig struct {
	Specs []PoseSpec `yaml:"poses"`
}

// DefaultRig is the five-slot layout: center first, then the four
// corners inset by one object size, clockwise from top-left.
func DefaultRig() *Rig {
	return &Rig{Specs: []PoseSpec{
		{FX: 0.5, FY: 0.5},
		{FX: 0, FY: 0, InsetX: 1, InsetY: 1},
		{FX: 1, FY: 0, InsetX: -1, InsetY: 1},
		{FX: 1, FY: 1, InsetX: -1, InsetY: -1},
		{FX: 0, FY: 1, InsetX: 1, InsetY: -1},
	}}
}

// LoadRig reads a rig description from a YAML file.
func LoadRig(path string) (*Rig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rig: read %s: %w", path, err)
	}
	var rig Rig
	if err := yaml.Unmarshal(raw, &rig); err != nil {
		return nil, fmt.Errorf("rig: parse %s: %w", path, err)
	}
	if len(rig.Specs) == 0 {
		return nil, fmt.Errorf("rig: %s defines no poses", path)
	}
	return &rig, nil
}

// Len returns the number of calibration slots.
func (r *Rig) Len() int {
	return len(r.Specs)
}

// Poses materializes the rig over a frame of the given size. Slots
// without a pinned angle get 2π·index/N, so a full collection sweeps
// the orientation range evenly.
func (r *Rig) Poses(width, height, objectSize int) []Pose {
	n := len(r.Specs)
	poses := make([]Pose, n)
	for i, spec := range r.Specs {
		angle := 2 * math.Pi * float64(i) / float64(n)
		if spec.AngleDeg != nil {
			angle = *spec.AngleDeg * math.Pi / 180
		}
		poses[i] = Pose{
			X:     spec.FX*float64(width) + spec.InsetX*float64(objectSize),
			Y:     spec.FY*float64(height) + spec.InsetY*float64(objectSize),
			Angle: angle,
		}
	}
	return poses
}
