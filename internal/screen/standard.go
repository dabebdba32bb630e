package screen

import (
	"time"

	"github.com/nerrad567/mc-connect-core/internal/render"
)

// Stock screen identifiers.
const (
	Promo ID = "promo"
	Menu  ID = "menu"
	Pay   ID = "pay"
	Help  ID = "help"
)

// StandardConfig supplies the painters and idle delays of the stock
// table-display graph.
type StandardConfig struct {
	Promo render.Painter
	Menu  render.Painter
	Pay   render.Painter
	Help  render.Painter

	PromoIdle time.Duration
	MenuIdle  time.Duration
	PayIdle   time.Duration
}

// Standard builds the stock graph:
//
//	promo --short--> menu --short--> pay --short--> menu
//	menu, pay --long--> help --long--> menu
//	menu, pay --idle--> promo --idle--> promo (next promotion)
//
// Displays start on the promotional screen.
func Standard(cfg StandardConfig) (*Graph, error) {
	return Build(Promo, []Spec{
		{ID: Promo, Painter: cfg.Promo, Short: Menu, Idle: Promo, IdleAfter: cfg.PromoIdle},
		{ID: Menu, Painter: cfg.Menu, Short: Pay, Long: Help, Idle: Promo, IdleAfter: cfg.MenuIdle},
		{ID: Pay, Painter: cfg.Pay, Short: Menu, Long: Help, Idle: Promo, IdleAfter: cfg.PayIdle},
		{ID: Help, Painter: cfg.Help, Long: Menu},
	})
}
