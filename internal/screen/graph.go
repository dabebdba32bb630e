package screen

import (
	"fmt"
	"time"

	"github.com/nerrad567/mc-connect-core/internal/render"
)

// Input is a symbol fed to the state machine.
type Input int

const (
	// Refresh has no edge on any screen, so it always self-loops. It is
	// used to re-render the current screen, e.g. after a balance change.
	Refresh Input = iota
	ShortPress
	LongPress
	IdleTimeout
)

// String returns the input name used in logs and telemetry.
func (i Input) String() string {
	switch i {
	case Refresh:
		return "refresh"
	case ShortPress:
		return "short_press"
	case LongPress:
		return "long_press"
	case IdleTimeout:
		return "idle_timeout"
	default:
		return fmt.Sprintf("input(%d)", int(i))
	}
}

// ID identifies a screen within a graph.
type ID string

// Spec is one row of the declarative transition table. Empty edge IDs
// mean "no edge". The idle edge is only armed when IdleAfter > 0.
type Spec struct {
	ID      ID
	Painter render.Painter

	Short     ID
	Long      ID
	Idle      ID
	IdleAfter time.Duration
}

// Screen is an immutable node of a Graph.
type Screen struct {
	id        ID
	painter   render.Painter
	short     *Screen
	long      *Screen
	idle      *Screen
	idleAfter time.Duration
}

// ID returns the screen identifier.
func (s *Screen) ID() ID { return s.id }

// Painter returns the screen's drawing routine.
func (s *Screen) Painter() render.Painter { return s.painter }

// Next returns the screen reached by in, or s itself when s has no edge
// for in.
func (s *Screen) Next(in Input) *Screen {
	var next *Screen
	switch in {
	case ShortPress:
		next = s.short
	case LongPress:
		next = s.long
	case IdleTimeout:
		next = s.idle
	}
	if next == nil {
		return s
	}
	return next
}

// IdleTimeout reports the delay before the idle edge fires. ok is false
// when the screen has no idle edge or its delay is zero.
func (s *Screen) IdleTimeout() (d time.Duration, ok bool) {
	if s.idle == nil || s.idleAfter <= 0 {
		return 0, false
	}
	return s.idleAfter, true
}

// Graph is a built set of screens with a designated initial screen.
type Graph struct {
	initial *Screen
	screens map[ID]*Screen
}

// Build validates specs and links them into a Graph starting at initial.
func Build(initial ID, specs []Spec) (*Graph, error) {
	screens := make(map[ID]*Screen, len(specs))
	for _, sp := range specs {
		if sp.ID == "" || sp.Painter == nil || sp.IdleAfter < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidScreen, sp.ID)
		}
		if _, dup := screens[sp.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateScreen, sp.ID)
		}
		screens[sp.ID] = &Screen{id: sp.ID, painter: sp.Painter, idleAfter: sp.IdleAfter}
	}

	resolve := func(from, to ID) (*Screen, error) {
		if to == "" {
			return nil, nil //nolint:nilnil // absent edge
		}
		s, ok := screens[to]
		if !ok {
			return nil, fmt.Errorf("%w: %q referenced by %q", ErrUnknownScreen, to, from)
		}
		return s, nil
	}

	var err error
	for _, sp := range specs {
		s := screens[sp.ID]
		if s.short, err = resolve(sp.ID, sp.Short); err != nil {
			return nil, err
		}
		if s.long, err = resolve(sp.ID, sp.Long); err != nil {
			return nil, err
		}
		if s.idle, err = resolve(sp.ID, sp.Idle); err != nil {
			return nil, err
		}
	}

	start, ok := screens[initial]
	if !ok {
		return nil, fmt.Errorf("%w: initial %q", ErrUnknownScreen, initial)
	}
	return &Graph{initial: start, screens: screens}, nil
}

// Initial returns the screen new displays start on.
func (g *Graph) Initial() *Screen { return g.initial }

// Screen looks up a screen by ID.
func (g *Graph) Screen(id ID) (*Screen, bool) {
	s, ok := g.screens[id]
	return s, ok
}

// Len returns the number of screens.
func (g *Graph) Len() int { return len(g.screens) }
