// Package tailbuf keeps the most recent lines of a subprocess output
// stream so a failure can be reported with usable context instead of a
// bare exit code.
package tailbuf

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"
)

// Buffer is a fixed-size ring of recent output lines.
type Buffer struct {
	lines    []string
	maxLines int
	index    int
	full     bool
	mu       sync.RWMutex
}

// New creates a ring buffer holding up to maxLines recent lines.
func New(maxLines int) *Buffer {
	return &Buffer{
		lines:    make([]string, maxLines),
		maxLines: maxLines,
	}
}

// Add stores a line, stamped with the time it arrived.
func (b *Buffer) Add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines[b.index] = fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05.000"), line)
	b.index = (b.index + 1) % b.maxLines
	if b.index == 0 {
		b.full = true
	}
}

// Recent returns the buffered lines, oldest first.
func (b *Buffer) Recent() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.full && b.index == 0 {
		return nil
	}

	var result []string
	if b.full {
		// Ring has wrapped; the oldest line sits at the write index.
		for i := 0; i < b.maxLines; i++ {
			idx := (b.index + i) % b.maxLines
			if b.lines[idx] != "" {
				result = append(result, b.lines[idx])
			}
		}
	} else {
		for i := 0; i < b.index; i++ {
			if b.lines[i] != "" {
				result = append(result, b.lines[i])
			}
		}
	}
	return result
}

// Follow reads r line by line into the buffer until EOF or a read
// error. Trainer output can carry long lines (progress bars, stack
// traces), so the scanner buffer is widened well past the default. A
// read error is recorded as the final buffered line.
func (b *Buffer) Follow(r io.Reader) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		b.Add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		b.Add(fmt.Sprintf("scanner error: %v", err))
	}
}
