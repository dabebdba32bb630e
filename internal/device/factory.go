package device

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/nerrad567/mc-connect-core/internal/qr"
	"github.com/nerrad567/mc-connect-core/internal/render"
	"github.com/nerrad567/mc-connect-core/internal/screen"
)

// QREncoder renders a string as a square QR code image.
type QREncoder interface {
	Encode(value string, size int) (image.Image, error)
}

// FactoryConfig describes how to build the stock controller for a table.
type FactoryConfig struct {
	// MenuURL and PayURL get the table ID appended as "?table=<id>".
	MenuURL string
	PayURL  string
	QRSize  int

	PromoIdle time.Duration
	MenuIdle  time.Duration
	PayIdle   time.Duration

	// Rotation is the promotion list shared by every display.
	Rotation *render.Rotation
	Encoder  QREncoder

	Controller Config
}

// NewFactory returns a BuildFunc that encodes the table's menu and pay
// QR codes, builds the stock screen graph around them, and creates a
// controller starting on the promotional screen.
func NewFactory(cfg FactoryConfig) BuildFunc {
	help := render.NewHelpPainter()
	promo := render.NewPromoPainter(cfg.Rotation)

	return func(_ context.Context, a Assignment) (*Controller, error) {
		menuQR, err := encodeTableQR(cfg.Encoder, cfg.MenuURL, a.TableID, cfg.QRSize)
		if err != nil {
			return nil, fmt.Errorf("menu QR for table %s: %w", a.TableID, err)
		}
		payQR, err := encodeTableQR(cfg.Encoder, cfg.PayURL, a.TableID, cfg.QRSize)
		if err != nil {
			return nil, fmt.Errorf("pay QR for table %s: %w", a.TableID, err)
		}

		g, err := screen.Standard(screen.StandardConfig{
			Promo:     promo,
			Menu:      render.NewMenuPainter(menuQR),
			Pay:       render.NewPayPainter(payQR),
			Help:      help,
			PromoIdle: cfg.PromoIdle,
			MenuIdle:  cfg.MenuIdle,
			PayIdle:   cfg.PayIdle,
		})
		if err != nil {
			return nil, fmt.Errorf("building screen graph: %w", err)
		}

		return NewController(a.DeviceID, g.Initial(), cfg.Controller)
	}
}

func encodeTableQR(enc QREncoder, base, tableID string, size int) (image.Image, error) {
	target, err := qr.TableURL(base, tableID)
	if err != nil {
		return nil, err
	}
	return enc.Encode(target, size)
}
