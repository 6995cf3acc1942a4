// Package progress renders a one-line terminal progress bar fed by frame
// indices arriving on a channel.
package progress

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cellfield/bubbles/internal/channel"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// DefaultWidth is used when the terminal size cannot be determined.
const DefaultWidth = 80

// labelWidth is the room reserved for the "[NN%]" suffix.
const labelWidth = 6

var labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

// TerminalWidth returns the column count of f, or DefaultWidth if f is not a terminal.
func TerminalWidth(f *os.File) int {
	if f == nil {
		return DefaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

// Fraction is the completed share of the run once frame has been emitted.
func Fraction(frame, total int) float64 {
	if total <= 0 {
		return 1
	}
	f := float64(frame+1) / float64(total)
	return min(max(f, 0), 1)
}

// Bar draws the bar for frame out of total on a line of the given width:
// '=' for the completed share, '-' for the rest, then "[NN%]".
func Bar(width, total, frame int) string {
	cols := max(width-labelWidth, 0)
	frac := Fraction(frame, total)
	filled := int(frac * float64(cols))

	var b strings.Builder
	b.Grow(cols + labelWidth)
	b.WriteString(strings.Repeat("=", filled))
	b.WriteString(strings.Repeat("-", cols-filled))
	fmt.Fprintf(&b, "[%d%%]", int(frac*100))
	return b.String()
}

// Dependencies holds what the reporter writes to and how.
type Dependencies struct {
	Out   io.Writer
	Total int
	// Width of the line in columns. Zero means DefaultWidth.
	Width int
	// Styled colors the percentage label.
	Styled bool
}

// Reporter consumes frame indices and redraws the bar for each.
type Reporter struct {
	deps      Dependencies
	isRunning bool
	started   bool
	mu        sync.RWMutex
	done      chan struct{}
	last      int
}

// ErrAlreadyRunning is returned by Start when the reporter has been started before.
var ErrAlreadyRunning = errors.New("progress reporter already started")

// NewReporter creates a reporter. It does nothing until Start.
func NewReporter(deps Dependencies) *Reporter {
	if deps.Width <= 0 {
		deps.Width = DefaultWidth
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	return &Reporter{
		deps: deps,
		done: make(chan struct{}),
		last: -1,
	}
}

// IsRunning returns whether the worker goroutine is consuming events.
func (r *Reporter) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRunning
}

// Start launches the worker. It exits once rx is closed and drained.
func (r *Reporter) Start(rx channel.Receiver[int]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyRunning
	}
	r.started = true
	r.isRunning = true

	go r.loop(rx)
	return nil
}

func (r *Reporter) loop(rx channel.Receiver[int]) {
	defer close(r.done)
	drawn := false
	for frame := range rx.Receive() {
		r.draw(frame)
		drawn = true
	}
	if drawn {
		fmt.Fprintln(r.deps.Out)
	}

	r.mu.Lock()
	r.isRunning = false
	r.mu.Unlock()
}

func (r *Reporter) draw(frame int) {
	line := Bar(r.deps.Width, r.deps.Total, frame)
	if r.deps.Styled {
		cut := strings.LastIndexByte(line, '[')
		line = line[:cut] + labelStyle.Render(line[cut:])
	}
	fmt.Fprint(r.deps.Out, line+"\r")

	r.mu.Lock()
	r.last = frame
	r.mu.Unlock()
}

// Last returns the most recent frame index drawn, or -1.
func (r *Reporter) Last() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Wait blocks until the worker has exited.
func (r *Reporter) Wait() {
	<-r.done
}
