package ui

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/logger"
)

// Button labels.
const (
	StartLabel = "Start Detection"
	StopLabel  = "Stop Detection"
)

const (
	title    = "Noise Monitor"
	help     = "space/enter: toggle   q/esc: quit"
	maxBar   = 64
	leftEdge = 2
)

// Controls are the monitor operations the UI triggers.
type Controls interface {
	Start(ctx context.Context) (domain.Snapshot, error)
	Stop(ctx context.Context) (domain.Snapshot, error)
}

// quitSignal marks the interrupt posted when the context ends.
type quitSignal struct{}

// UI is a terminal front end. It implements the controller observer interface.
type UI struct {
	screen   tcell.Screen
	controls Controls

	mu    sync.Mutex
	state domain.Snapshot
	level float64
}

// New creates a UI drawing on screen.
func New(screen tcell.Screen, controls Controls, initial domain.Snapshot) *UI {
	return &UI{
		screen:   screen,
		controls: controls,
		state:    initial,
		level:    initial.Level,
	}
}

// FrameSampled updates the level bar.
func (u *UI) FrameSampled(level float64) {
	u.mu.Lock()
	u.level = level
	u.mu.Unlock()

	u.redraw()
}

// StateChanged updates the button and the status line.
func (u *UI) StateChanged(s domain.Snapshot) {
	u.mu.Lock()
	u.state = s
	u.level = s.Level
	u.mu.Unlock()

	u.redraw()
}

// Run initialises the screen and handles input until the user quits or ctx ends.
// Detection is stopped on the way out.
func (u *UI) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "ui")

	if err := u.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}

	defer u.screen.Fini()

	stop := context.AfterFunc(ctx, func() {
		_ = u.screen.PostEvent(tcell.NewEventInterrupt(quitSignal{}))
	})
	defer stop()

	u.draw()

	for {
		switch ev := u.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			u.screen.Sync()
			u.draw()
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(quitSignal); ok {
				u.shutdown(ctx)
				return nil
			}

			u.draw()
		case *tcell.EventKey:
			if quit := u.handleKey(ctx, ev); quit {
				u.shutdown(ctx)
				return nil
			}
		}
	}
}

// handleKey reacts to a key press and reports whether to quit.
func (u *UI) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyEnter:
		u.toggle(ctx)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case ' ':
			u.toggle(ctx)
		}
	}

	return false
}

func (u *UI) toggle(ctx context.Context) {
	u.mu.Lock()
	running := u.state.Running
	u.mu.Unlock()

	var err error

	// The new state arrives through StateChanged from the controller.
	if running {
		_, err = u.controls.Stop(ctx)
	} else {
		_, err = u.controls.Start(ctx)
	}

	if err != nil {
		logger.WarnKV(ctx, "Toggle detection failed", "error", err)
	}
}

func (u *UI) shutdown(ctx context.Context) {
	// The caller's context may already be done.
	if _, err := u.controls.Stop(context.WithoutCancel(ctx)); err != nil {
		logger.WarnKV(ctx, "Stop detection on exit failed", "error", err)
	}
}

// redraw asks the event loop to repaint. Dropped when the queue is full.
func (u *UI) redraw() {
	_ = u.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

func (u *UI) draw() {
	u.mu.Lock()
	state, level := u.state, u.level
	u.mu.Unlock()

	s := u.screen
	s.Clear()

	width, _ := s.Size()
	lineWidth := max(width-leftEdge, 0)

	drawText(s, leftEdge, 1, lineWidth, tcell.StyleDefault.Bold(true), title)

	label := StartLabel
	buttonStyle := tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorWhite).Bold(true)

	if state.Running {
		label = StopLabel
		buttonStyle = buttonStyle.Background(tcell.ColorDarkRed)
	}

	button := "[ " + label + " ]"
	drawText(s, leftEdge, 3, len(button), buttonStyle, button)

	drawText(s, leftEdge, 5, lineWidth, statusStyle(state), "Status: "+string(state.Status))

	barWidth := min(lineWidth-16, maxBar)
	if barWidth > 0 {
		drawBar(s, leftEdge, 7, barWidth, level, state.Threshold)
		drawText(s, leftEdge+barWidth+2, 7, 14, tcell.StyleDefault,
			fmt.Sprintf("%5.1f / %.0f", level, state.Threshold))
	}

	drawText(s, leftEdge, 9, lineWidth, tcell.StyleDefault.Foreground(tcell.ColorGray), help)

	s.Show()
}

func statusStyle(state domain.Snapshot) tcell.Style {
	switch {
	case state.Alerting, state.Status.IsError():
		return tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	case state.Running:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	default:
		return tcell.StyleDefault
	}
}

// drawBar renders level on the 0..255 scale with a marker at threshold.
func drawBar(s tcell.Screen, x, y, width int, level, threshold float64) {
	filled := scale(level, width)
	marker := scale(threshold, width)

	fill := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	if level > threshold {
		fill = fill.Foreground(tcell.ColorRed)
	}

	for col := range width {
		r, style := '░', tcell.StyleDefault.Foreground(tcell.ColorGray)
		if col < filled {
			r, style = '█', fill
		}

		if col == marker {
			r, style = '│', tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
		}

		s.SetContent(x+col, y, r, nil, style)
	}
}

// scale maps v on 0..255 to a column in [0, width).
func scale(v float64, width int) int {
	col := int(math.Round(v / domain.MaxMagnitude * float64(width)))

	return min(max(col, 0), width-1)
}

// drawText draws text at a position and pads it with blanks up to width.
func drawText(s tcell.Screen, x, y, width int, style tcell.Style, text string) {
	col := 0

	for _, r := range text {
		if col >= width {
			return
		}

		s.SetContent(x+col, y, r, nil, style)
		col++
	}

	for ; col < width; col++ {
		s.SetContent(x+col, y, ' ', nil, style)
	}
}
