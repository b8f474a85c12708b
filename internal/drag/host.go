package drag

import (
	"context"
	"time"

	"github.com/starford/tessera/internal/block"
	"github.com/starford/tessera/internal/depth"
)

// Point is a pointer position in host pixels.
type Point struct {
	X, Y float64
}

// Edge is the half of a block the pointer is over.
type Edge int

const (
	Top Edge = iota
	Bottom
)

func (e Edge) String() string {
	if e == Top {
		return "top"
	}
	return "bottom"
}

// Hit is the block under the pointer and its vertical extent.
type Hit struct {
	Index       int
	Top, Bottom float64
}

// Target is where a drop would land: after the block at After (-1 for the
// start) at Depth. Index and Edge locate the indicator.
type Target struct {
	Index     int
	Edge      Edge
	After     int
	Depth     int
	Duplicate bool
}

// Modifiers are the keys held during a pointer event.
type Modifiers struct {
	Alt bool
}

// HitTester finds the block under a point.
type HitTester interface {
	BlockAt(p Point) (Hit, bool)
}

// Viewport is the scrollable container. Auto-scroll calls ScrollBy from a
// ticker goroutine; without a Scheduler on the Host, implementations must be
// safe for use concurrently with the engine's other host calls.
type Viewport interface {
	FirstVisible() (int, bool)
	Bounds() (top, bottom float64)
	ScrollBy(dy float64)
}

// Previewer draws the floating copy of the dragged blocks.
type Previewer interface {
	ShowPreview(sources []int, p Point)
	MovePreview(p Point)
	// SetPreviewHidden hides the preview so it does not intercept hit tests.
	SetPreviewHidden(hidden bool)
	RemovePreview()
}

// Indicator draws the single drop marker.
type Indicator interface {
	ShowIndicator(t Target)
	HideIndicator()
}

// Announcer speaks status to assistive technology.
type Announcer interface {
	Announce(msg string)
}

// Toolbar is the block toolbar hidden during a drag.
type Toolbar interface {
	HideToolbar()
	RestoreToolbar()
}

// Scheduler queues fn to run on the host's event thread and returns without
// waiting for it. Single-threaded hosts provide one so auto-scroll ticks never
// call into them concurrently.
type Scheduler interface {
	Schedule(fn func())
}

// Host bundles the host collaborators. HitTester and Viewport are required.
type Host struct {
	HitTester HitTester
	Viewport  Viewport
	Scheduler Scheduler
	Previewer Previewer
	Indicator Indicator
	Announcer Announcer
	Toolbar   Toolbar
}

// Document is what the engine reads and, once per gesture, mutates.
type Document interface {
	Len() int
	Selected() []int
	Select(i int, on bool) error
	ClearSelection()
	Descendants(index int) []int
	Entries() depth.Entries
	MoveGroup(from []int, after, depth int) error
	Duplicate(ctx context.Context, from []int, after, depth int) ([]*block.Block, error)
}

// Config holds gesture constants.
type Config struct {
	Threshold   float64
	IndentWidth float64
	ScrollZone  float64
	ScrollStep  float64
	Interval    time.Duration
}

// DefaultConfig returns the stock gesture constants.
func DefaultConfig() Config {
	return Config{
		Threshold:   5,
		IndentWidth: 24,
		ScrollZone:  48,
		ScrollStep:  12,
		Interval:    16 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.IndentWidth <= 0 {
		c.IndentWidth = def.IndentWidth
	}
	if c.ScrollZone <= 0 {
		c.ScrollZone = def.ScrollZone
	}
	if c.ScrollStep <= 0 {
		c.ScrollStep = def.ScrollStep
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	return c
}
