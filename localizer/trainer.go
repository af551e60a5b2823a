package localizer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"posecam/logger"
	"posecam/pkg/tailbuf"
)

// tailLines bounds how much trainer output a failure report carries.
const tailLines = 40

// Trainer runs the external training command against the installed
// working-directory config. The command receives the config path as
// its only argument and reads the dataset from the same directory.
type Trainer struct {
	command string
	cfgPath string
}

// NewTrainer creates a trainer for the given command and config path.
func NewTrainer(command, cfgPath string) *Trainer {
	return &Trainer{command: command, cfgPath: cfgPath}
}

// Run invokes the trainer synchronously and blocks until it exits.
// stdout and stderr are tailed so a failing run is reported with its
// recent output, not just an exit code. Training is operator-gated and
// off the hot path; a failure here is fatal to the session by policy.
func (t *Trainer) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.command, t.cfgPath)

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("trainer: stdout pipe: %w", err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("trainer: stderr pipe: %w", err)
	}

	stdout := tailbuf.New(tailLines)
	stderr := tailbuf.New(tailLines)

	logger.S().Infow("starting trainer", "command", t.command, "config", t.cfgPath)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("trainer: start %s: %w", t.command, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdout.Follow(outPipe)
	}()
	go func() {
		defer wg.Done()
		stderr.Follow(errPipe)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("trainer: %s failed after %s: %w\n%s",
			t.command, time.Since(start).Round(time.Millisecond), err, formatTail(stdout, stderr))
	}

	logger.S().Infow("trainer finished", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// formatTail renders the captured output tails for a failure report.
func formatTail(stdout, stderr *tailbuf.Buffer) string {
	var b strings.Builder
	b.WriteString("recent stderr:\n")
	for _, line := range stderr.Recent() {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("recent stdout:\n")
	for _, line := range stdout.Recent() {
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}
