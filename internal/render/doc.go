// Package render turns a screen's drawing routine and a table balance
// into a bitmap frame for a table display.
//
// Every screen paints its own main area and then calls the shared footer
// primitive, which draws the caption bar, the optional arrow and the
// right-aligned balance label. Rendering has no side effects other than
// advancing the shared promotion rotation.
//
// Usage:
//
//	p, err := render.NewPipeline(render.Options{Width: 400, Height: 300, FooterHeight: 100})
//	if err != nil {
//	    return err
//	}
//	frame, err := p.Render(render.NewHelpPainter(), decimal.RequireFromString("12.50"))
//	dataURL, err := frame.DataURL()
package render
