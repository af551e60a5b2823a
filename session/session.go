// Package session owns the interactive state machine that coordinates
// camera frames, operator keys, dataset collection, training and model
// lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"posecam/dataset"
	"posecam/localizer"
	"posecam/logger"
	"posecam/overlay"
	"posecam/view"
)

// Mode is the interaction state. The variant is closed: every dispatch
// switches over exactly these values and rejects anything else.
type Mode int

const (
	// ModeDetect overlays model detections on the live view.
	ModeDetect Mode = iota
	// ModeCollect walks the operator through the calibration poses.
	ModeCollect
)

// String returns the mode name for logs.
func (m Mode) String() string {
	switch m {
	case ModeDetect:
		return "detect"
	case ModeCollect:
		return "collect"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Operator key bindings, polled once per frame.
const (
	KeyNone     = -1
	KeyQuit     = 'q'
	KeyNewModel = 'n'
	KeyRetrain  = 'r'
	KeyCapture  = ' '
)

// Predictor is the loaded-model surface the session consumes.
type Predictor interface {
	Predict(input gocv.Mat) ([]localizer.Object, error)
	Close() error
}

// TrainRunner invokes the external trainer synchronously.
type TrainRunner interface {
	Run(ctx context.Context) error
}

// LoadFunc constructs a predictor from the installed config. Returning
// an error leaves the session in the degraded no-model state.
type LoadFunc func() (Predictor, error)

// Presenter pushes a canvas to the display immediately, outside the
// regular end-of-frame show. Training uses it so the wait caption is
// visible while the loop blocks.
type Presenter func(canvas gocv.Mat)

// Options wires a session's collaborators.
type Options struct {
	ObjectSize int
	Workdir    string
	Rig        *dataset.Rig // nil selects the default five-pose rig
	Load       LoadFunc
	Trainer    TrainRunner
	Present    Presenter // optional
}

// Session is the per-run interaction state. It is single-threaded:
// one HandleKey/Render pair per displayed frame, no locking.
type Session struct {
	mode       Mode
	objectSize int
	workdir    string
	rig        *dataset.Rig
	load       LoadFunc
	trainer    TrainRunner
	present    Presenter

	view      *view.View
	draw      *overlay.Renderer
	predictor Predictor
	collector *dataset.Collector
	collectID string
	key       int
}

// New builds a session in Detect mode and attempts the initial model
// load. A failed load is logged and leaves the session in the no-model
// state; construction itself never fails.
func New(opts Options) *Session {
	s := &Session{
		mode:       ModeDetect,
		objectSize: opts.ObjectSize,
		workdir:    opts.Workdir,
		rig:        opts.Rig,
		load:       opts.Load,
		trainer:    opts.Trainer,
		present:    opts.Present,
		view:       view.New(opts.ObjectSize),
		draw:       overlay.NewRenderer(),
		key:        KeyNone,
	}
	if s.rig == nil {
		s.rig = dataset.DefaultRig()
	}
	s.reload()
	return s
}

// HandleKey dispatches one polled key and retains it for the frame
// phase, where collection looks for the capture key. It returns true
// when the quit key ends the loop. A non-nil error is fatal: the only
// error path out of here is a failed training run.
func (s *Session) HandleKey(key int) (bool, error) {
	s.key = key
	switch key {
	case KeyQuit:
		logger.S().Infow("quit requested")
		return true, nil
	case KeyNewModel:
		s.startCollection()
	case KeyRetrain:
		logger.S().Infow("manual retrain requested")
		if err := s.train(); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Render runs one frame through the pipeline and draws the active
// mode's overlay onto the canvas. Recoverable faults are logged and
// absorbed here; a returned error (miswired capture, failed dataset
// write, failed training) is fatal to the session.
func (s *Session) Render(frame gocv.Mat) error {
	if err := s.view.Build(frame); err != nil {
		return err
	}
	// The retained key feeds exactly one frame.
	defer func() { s.key = KeyNone }()

	switch s.mode {
	case ModeDetect:
		s.renderDetect()
		return nil
	case ModeCollect:
		return s.renderCollect()
	default:
		return fmt.Errorf("session: unknown mode %v", s.mode)
	}
}

// renderDetect overlays detections when a model is loaded and keeps
// the operator informed when it is not.
func (s *Session) renderDetect() {
	canvas := s.view.Canvas()
	base := s.view.CameraHeight()
	s.draw.Caption(&canvas, "Press n to train new model, q to quit", base, overlay.RowMid, s.draw.Guide)

	if s.predictor != nil {
		input := localizer.Normalize(s.view.Camera())
		objects, err := s.predictor.Predict(input)
		input.Close()
		if err != nil {
			// Inference fault: drop the model, keep the loop alive.
			logger.S().Errorw("prediction failed, dropping model", "error", err)
			if cerr := s.predictor.Close(); cerr != nil {
				logger.S().Warnw("closing failed model", "error", cerr)
			}
			s.predictor = nil
		} else {
			for _, obj := range objects {
				s.draw.Marker(&canvas, obj.X, obj.Y, obj.Angle, s.objectSize, s.draw.Guide)
			}
			s.draw.Caption(&canvas, "Detecting. Show object to the camera.", base, overlay.RowTop, s.draw.Guide)
		}
	}
	if s.predictor == nil {
		s.draw.Caption(&canvas, "No model loaded", base, overlay.RowBottom, s.draw.Alert)
	}
}

// renderCollect draws the current calibration target and handles the
// capture key.
func (s *Session) renderCollect() error {
	canvas := s.view.Canvas()
	base := s.view.CameraHeight()

	poses := s.rig.Poses(s.view.CameraWidth(), base, s.objectSize)
	idx := s.collector.Cursor()
	pose := poses[idx]
	s.draw.Marker(&canvas, pose.X, pose.Y, pose.Angle, s.objectSize, s.draw.Guide)

	if s.key == KeyCapture {
		return s.capture(pose)
	}

	s.draw.Caption(&canvas, fmt.Sprintf("Image #%d of %d", idx+1, s.collector.Total()), base, overlay.RowTop, s.draw.Guide)
	s.draw.Caption(&canvas, "Place object to shown position and orientation", base, overlay.RowMid, s.draw.Guide)
	s.draw.Caption(&canvas, "and press space", base, overlay.RowBottom, s.draw.Guide)
	return nil
}

// capture persists the current pose's sample. On the final slot it
// writes the dataset, runs training and returns to Detect.
func (s *Session) capture(pose dataset.Pose) error {
	input := localizer.Normalize(s.view.Camera())
	defer input.Close()

	if err := s.collector.Capture(input, pose); err != nil {
		if errors.Is(err, dataset.ErrComplete) {
			logger.S().Debugw("capture ignored, collection already complete")
			return nil
		}
		// Image write failure: the sample was not appended, so the
		// operator can simply press capture again.
		logger.S().Errorw("capture failed", "error", err, "session", s.collectID)
		return nil
	}
	logger.S().Infow("sample captured",
		"session", s.collectID,
		"index", s.collector.Cursor()-1,
		"x", pose.X, "y", pose.Y, "angle", pose.Angle)

	if s.collector.Done() {
		path, err := s.collector.Write()
		if err != nil {
			// Training depends on the full dataset being on disk.
			return fmt.Errorf("session: persist dataset: %w", err)
		}
		logger.S().Infow("dataset written", "path", path, "samples", s.collector.Total())
		if err := s.train(); err != nil {
			return err
		}
	}
	return nil
}

// train shows the wait caption, runs the external trainer to
// completion, then reloads whatever model the run produced and returns
// the session to Detect. A trainer failure is fatal; a reload failure
// after a successful run degrades to the no-model state.
func (s *Session) train() error {
	if s.view.Ready() {
		canvas := s.view.Canvas()
		s.draw.Caption(&canvas, "Training, please wait...", s.view.CameraHeight(), overlay.RowTop, s.draw.Guide)
		if s.present != nil {
			s.present(canvas)
		}
	}

	if err := s.trainer.Run(context.Background()); err != nil {
		return fmt.Errorf("session: training failed: %w", err)
	}

	s.reload()
	s.mode = ModeDetect
	logger.S().Infow("training done", "model", s.ModelLoaded())
	return nil
}

// startCollection resets into Collect mode. Starting over mid-session
// is allowed and discards the partial collection; its images on disk
// are overwritten index by index by the new captures.
func (s *Session) startCollection() {
	s.collectID = uuid.NewString()
	s.collector = dataset.NewCollector(s.workdir, s.rig.Len())
	s.mode = ModeCollect
	logger.S().Infow("collection started", "session", s.collectID, "poses", s.rig.Len())
}

// reload swaps in a freshly loaded predictor, or the no-model state
// when loading fails. The old handle is fully discarded before the
// replacement is used; a half-initialized model never serves a
// prediction.
func (s *Session) reload() {
	if s.predictor != nil {
		if err := s.predictor.Close(); err != nil {
			logger.S().Warnw("closing previous model", "error", err)
		}
		s.predictor = nil
	}
	p, err := s.load()
	if err != nil {
		logger.S().Warnw("model unavailable", "error", err)
		return
	}
	s.predictor = p
	logger.S().Infow("model loaded")
}

// Mode returns the current interaction mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// ModelLoaded reports whether a predictor is currently active.
func (s *Session) ModelLoaded() bool {
	return s.predictor != nil
}

// Progress returns captured and total slots of the active collection,
// or zeros when none is active.
func (s *Session) Progress() (int, int) {
	if s.collector == nil {
		return 0, 0
	}
	return s.collector.Cursor(), s.collector.Total()
}

// Canvas returns the display canvas; valid after the first Render.
func (s *Session) Canvas() gocv.Mat {
	return s.view.Canvas()
}

// Close releases the loaded model and the view mats.
func (s *Session) Close() {
	if s.predictor != nil {
		if err := s.predictor.Close(); err != nil {
			logger.S().Warnw("closing model", "error", err)
		}
		s.predictor = nil
	}
	s.view.Close()
}
