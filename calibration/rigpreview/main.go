package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strconv"

	"gocv.io/x/gocv"

	"posecam/config"
	"posecam/dataset"
	"posecam/overlay"
	"posecam/view"
)

var (
	configPath = flag.String("config", "posecam.json", "Trainer configuration template providing object_size")
	rigPath    = flag.String("rig", "", "Optional YAML rig file (default: built-in five-pose rig)")
	frameW     = flag.Int("width", 640, "Camera frame width in pixels")
	frameH     = flag.Int("height", 480, "Camera frame height in pixels")
	outPath    = flag.String("out", "rig-preview.png", "Output PNG path for the rendered preview")
)

// rigpreview renders a rig's calibration poses onto a synthetic frame
// using the exact scaling and layout of the live view, so a rig can be
// checked for fit before a camera is ever plugged in.
func main() {
	flag.Parse()

	fmt.Printf("📐 RIG PREVIEW\n")
	fmt.Printf("==============\n\n")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	rig := dataset.DefaultRig()
	rigName := "built-in"
	if *rigPath != "" {
		rig, err = dataset.LoadRig(*rigPath)
		if err != nil {
			fmt.Printf("❌ Rig error: %v\n", err)
			os.Exit(1)
		}
		rigName = *rigPath
	}

	fmt.Printf("🎛️  Rig: %s (%d poses)\n", rigName, rig.Len())
	fmt.Printf("📏 Frame: %dx%d pixels, object size %d px\n\n", *frameW, *frameH, cfg.ObjectSize)

	// Run a synthetic frame through the real view pipeline so the
	// preview geometry matches what the operator will see live.
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(32, 32, 32, 0), *frameH, *frameW, gocv.MatTypeCV8UC3)
	defer frame.Close()

	v := view.New(cfg.ObjectSize)
	defer v.Close()
	if err := v.Build(frame); err != nil {
		fmt.Printf("❌ View error: %v\n", err)
		os.Exit(1)
	}

	poses := rig.Poses(v.CameraWidth(), v.CameraHeight(), cfg.ObjectSize)
	canvas := v.Canvas()
	draw := overlay.NewRenderer()
	white := color.RGBA{255, 255, 255, 0}

	for i, pose := range poses {
		draw.Marker(&canvas, pose.X, pose.Y, pose.Angle, cfg.ObjectSize, draw.Guide)
		gocv.PutText(&canvas, strconv.Itoa(i+1),
			image.Pt(int(pose.X)+6, int(pose.Y)-6),
			gocv.FontHersheySimplex, 0.5, white, 1)
	}
	draw.Caption(&canvas, fmt.Sprintf("%d poses, object size %d px", len(poses), cfg.ObjectSize),
		v.CameraHeight(), overlay.RowTop, draw.Guide)

	if ok := gocv.IMWrite(*outPath, canvas); !ok {
		fmt.Printf("❌ Failed to write preview image: %s\n", *outPath)
		os.Exit(1)
	}

	displayPoseTable(poses)

	fmt.Printf("\n✅ Preview saved to: %s\n", *outPath)
	fmt.Printf("   View area: %dx%d (scale %.4f), canvas: %dx%d\n",
		v.CameraWidth(), v.CameraHeight(), v.Scale(), canvas.Cols(), canvas.Rows())
}

// displayPoseTable prints the resolved pose coordinates.
func displayPoseTable(poses []dataset.Pose) {
	fmt.Printf("📋 RESOLVED POSES\n")
	fmt.Printf("┌──────┬─────────┬─────────┬──────────┐\n")
	fmt.Printf("│ Pose │    X    │    Y    │  Angle°  │\n")
	fmt.Printf("├──────┼─────────┼─────────┼──────────┤\n")
	for i, pose := range poses {
		fmt.Printf("│ %4d │ %7.1f │ %7.1f │ %8.1f │\n",
			i+1, pose.X, pose.Y, pose.Angle*180/math.Pi)
	}
	fmt.Printf("└──────┴─────────┴─────────┴──────────┘\n")
}
