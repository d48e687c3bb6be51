package display

import (
	"log/slog"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/popup"
)

var _ popup.Presenter = (*Popup)(nil)

// Popup is a layer-shell window showing the rows of one popup instance.
// Exported methods may be called from any goroutine; the fields below the
// divider are only touched on the GTK main loop.
type Popup struct {
	id      string
	app     *gtk.Application
	config  config.DisplayConfig
	logger  *slog.Logger
	dismiss func()

	// GTK main loop only
	window     *gtk.Window
	box        *gtk.Box
	rows       []*gtk.Label
	provider   *gtk.CSSProvider
	display    *gdk.Display
	background string
	presented  bool
	closed     bool
}

func newPopup(app *gtk.Application, id string, cfg config.DisplayConfig, dismiss func(), logger *slog.Logger) *Popup {
	return &Popup{
		id:      id,
		app:     app,
		config:  cfg,
		logger:  logger.With("instance", id),
		dismiss: dismiss,
	}
}

// Render replaces the rows and background colour.
func (p *Popup) Render(view popup.View) {
	glib.IdleAdd(func() { p.render(view) })
}

// ClearSelection drops any text selection in the rows.
func (p *Popup) ClearSelection() {
	glib.IdleAdd(p.clearSelection)
}

// SetOpacity sets the window opacity.
func (p *Popup) SetOpacity(opacity float64) {
	glib.IdleAdd(func() { p.setOpacity(opacity) })
}

// Close destroys the window.
func (p *Popup) Close() {
	glib.IdleAdd(p.close)
}

// build creates the window. It runs on the GTK main loop before any other
// call queued for this popup. A panic while building closes whatever was
// created and dismisses the instance.
func (p *Popup) build() {
	recoverBuild(p.logger, p.buildWindow, p.close, p.dismiss)
}

func (p *Popup) buildWindow() {
	p.display = gdk.DisplayGetDefault()
	if p.display == nil {
		p.logger.Error("no display available, dismissing popup")
		p.closed = true
		p.dismiss()
		return
	}

	p.window = gtk.NewWindow()
	p.window.SetApplication(p.app)
	p.window.SetDecorated(false)
	p.window.SetResizable(false)
	p.window.SetDefaultSize(p.config.Width, -1)
	p.window.SetSizeRequest(p.config.Width, -1)
	p.window.AddCSSClass("notiwin-popup")
	p.window.AddCSSClass(cssClass(p.id))

	layershell.InitForWindow(p.window)
	layershell.SetLayer(p.window, layershell.LayerShellLayerTop)
	layershell.SetExclusiveZone(p.window, 0)
	layershell.SetKeyboardMode(p.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(p.window, "notiwin")
	if monitor := monitorFor(p.display, p.config.Monitor, p.logger); monitor != nil {
		layershell.SetMonitor(p.window, monitor)
	}

	for _, edge := range allEdges {
		layershell.SetAnchor(p.window, edge, false)
	}
	for _, a := range placement(config.Position(p.config.Position), p.config.OffsetX, p.config.OffsetY) {
		layershell.SetAnchor(p.window, a.edge, true)
		layershell.SetMargin(p.window, a.edge, a.margin)
	}

	p.box = gtk.NewBox(gtk.OrientationVertical, 4)
	p.box.AddCSSClass("notification-popup")
	p.box.SetMarginTop(8)
	p.box.SetMarginBottom(8)
	p.box.SetMarginStart(12)
	p.box.SetMarginEnd(12)
	p.window.SetChild(p.box)

	p.provider = gtk.NewCSSProvider()
	gtk.StyleContextAddProviderForDisplay(p.display, p.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)

	click := gtk.NewGestureClick()
	click.SetButton(0)
	click.ConnectReleased(func(nPress int, x, y float64) {
		p.dismiss()
	})
	p.window.AddController(click)

	p.logger.Debug("popup window created")
}

func (p *Popup) render(view popup.View) {
	if p.closed || p.window == nil {
		return
	}

	if view.Background != p.background {
		p.background = view.Background
		p.provider.LoadFromString(popupCSS(cssClass(p.id), view.Background, p.config.Font))
	}

	for _, row := range p.rows {
		p.box.Remove(row)
	}
	p.rows = p.rows[:0]

	for _, n := range visibleRows(view.Notifications, p.config.MaxRows) {
		row := gtk.NewLabel(rowText(n))
		row.SetWrap(true)
		row.SetXAlign(0)
		row.SetSelectable(true)
		row.AddCSSClass("notification-row")
		if n.Severity.IsError() {
			row.AddCSSClass("notification-error")
		}
		p.box.Append(row)
		p.rows = append(p.rows, row)
	}

	if !p.presented {
		p.presented = true
		p.window.Present()
	}
}

func (p *Popup) clearSelection() {
	if p.closed {
		return
	}
	for _, row := range p.rows {
		row.SelectRegion(0, 0)
	}
}

func (p *Popup) setOpacity(opacity float64) {
	if p.closed || p.window == nil {
		return
	}
	p.window.SetOpacity(min(max(opacity, 0), 1))
}

func (p *Popup) close() {
	if p.closed {
		return
	}
	p.closed = true
	if p.provider != nil {
		gtk.StyleContextRemoveProviderForDisplay(p.display, p.provider)
	}
	if p.window != nil {
		p.window.Close()
	}
	p.logger.Debug("popup window closed")
}
