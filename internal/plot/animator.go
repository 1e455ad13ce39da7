package plot

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"tsevolve/internal/series"
)

const (
	targetMark    = '.'
	candidateMark = '*'
)

// Frame is one step of an animation: the best series of a generation.
type Frame struct {
	Label  string
	Points []series.Point
}

// Animator replays frames over a fixed target on a tcell screen.
type Animator struct {
	screen   tcell.Screen
	target   []series.Point
	frames   []Frame
	bounds   Bounds
	interval time.Duration
	loop     bool

	targetStyle    tcell.Style
	candidateStyle tcell.Style
}

// NewAnimator builds an animator. Axis bounds are shared by all frames so
// the target stays still while the candidates move.
func NewAnimator(screen tcell.Screen, target []series.Point, frames []Frame, interval time.Duration, loop bool) *Animator {
	lines := make([][]series.Point, 0, len(frames)+1)
	lines = append(lines, target)
	for _, f := range frames {
		lines = append(lines, f.Points)
	}
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &Animator{
		screen:         screen,
		target:         target,
		frames:         frames,
		bounds:         BoundsOf(lines...),
		interval:       interval,
		loop:           loop,
		targetStyle:    tcell.StyleDefault.Foreground(tcell.ColorRed),
		candidateStyle: tcell.StyleDefault.Foreground(tcell.ColorGreen),
	}
}

// Run initializes the screen, plays every frame and returns when the frames
// run out (unless looping), the user presses q or Esc, or ctx ends.
func (a *Animator) Run(ctx context.Context) error {
	if len(a.frames) == 0 {
		return nil
	}
	if err := a.screen.Init(); err != nil {
		return err
	}
	defer a.screen.Fini()

	done := make(chan struct{})
	defer close(done)
	events := make(chan tcell.Event)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	frame := 0
	a.DrawFrame(frame)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return nil
				}
			case *tcell.EventResize:
				a.screen.Sync()
				a.DrawFrame(frame)
			}
		case <-ticker.C:
			frame++
			if frame == len(a.frames) {
				if !a.loop {
					return nil
				}
				frame = 0
			}
			a.DrawFrame(frame)
		}
	}
}

// DrawFrame renders frame i: the plot fills all rows but the last, which
// holds the frame label.
func (a *Animator) DrawFrame(i int) {
	a.screen.Clear()
	width, height := a.screen.Size()
	if width <= 0 || height <= 1 {
		a.screen.Show()
		return
	}

	canvas := NewCanvas(width, height-1)
	canvas.Plot(a.target, a.bounds, targetMark)
	canvas.Plot(a.frames[i].Points, a.bounds, candidateMark)
	for y := 0; y < height-1; y++ {
		for x := 0; x < width; x++ {
			r := canvas.Cell(x, y)
			switch r {
			case targetMark:
				a.screen.SetContent(x, y, r, nil, a.targetStyle)
			case candidateMark:
				a.screen.SetContent(x, y, r, nil, a.candidateStyle)
			}
		}
	}
	for x, r := range []rune(a.frames[i].Label) {
		if x >= width {
			break
		}
		a.screen.SetContent(x, height-1, r, nil, tcell.StyleDefault)
	}
	a.screen.Show()
}

// RenderStatic draws the target and the last frame on a plain canvas, for
// output that is not a terminal.
func RenderStatic(target []series.Point, frames []Frame, width, height int) []string {
	lines := make([][]series.Point, 0, len(frames)+1)
	lines = append(lines, target)
	for _, f := range frames {
		lines = append(lines, f.Points)
	}
	bounds := BoundsOf(lines...)

	canvas := NewCanvas(width, height)
	canvas.Plot(target, bounds, targetMark)
	out := canvas.Lines()
	if len(frames) > 0 {
		last := frames[len(frames)-1]
		canvas.Plot(last.Points, bounds, candidateMark)
		out = append(canvas.Lines(), last.Label)
	}
	return out
}
