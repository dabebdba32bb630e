// Package screen defines the display state machine: a fixed graph of
// screens joined by short-press, long-press and idle-timeout edges.
//
// A Graph is built once from a declarative table of Specs and is
// immutable afterwards. Screens may form cycles, and any input without
// an edge is a self-loop. Screens hold no per-device state; the current
// position of each display is tracked by the device package.
//
// Usage:
//
//	g, err := screen.Build("promo", []screen.Spec{
//	    {ID: "promo", Painter: promo, Short: "menu", Idle: "promo", IdleAfter: 20 * time.Second},
//	    {ID: "menu", Painter: menu, Short: "promo"},
//	})
//	next := g.Initial().Next(screen.ShortPress)
package screen
