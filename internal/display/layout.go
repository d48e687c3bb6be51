package display

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unsafe"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/jmylchreest/notiwin/internal/config"
	"github.com/jmylchreest/notiwin/internal/model"
	"github.com/jmylchreest/notiwin/internal/popup"
)

// maxRowChars bounds a single row before it is truncated.
const maxRowChars = 500

var allEdges = []layershell.LayerShellEdge{
	layershell.LayerShellEdgeTop,
	layershell.LayerShellEdgeBottom,
	layershell.LayerShellEdgeLeft,
	layershell.LayerShellEdgeRight,
}

// anchor is one layer-shell edge the popup is pinned to.
type anchor struct {
	edge   layershell.LayerShellEdge
	margin int
}

// placement returns the anchors for a configured position.
// Center positions only pin the vertical edge.
func placement(pos config.Position, offsetX, offsetY int) []anchor {
	popup.Assert(offsetX >= 0 && offsetY >= 0, "offsets %d,%d must not be negative", offsetX, offsetY)

	switch pos {
	case config.PositionTopRight:
		return []anchor{{layershell.LayerShellEdgeTop, offsetY}, {layershell.LayerShellEdgeRight, offsetX}}
	case config.PositionTopLeft:
		return []anchor{{layershell.LayerShellEdgeTop, offsetY}, {layershell.LayerShellEdgeLeft, offsetX}}
	case config.PositionTopCenter:
		return []anchor{{layershell.LayerShellEdgeTop, offsetY}}
	case config.PositionBottomLeft:
		return []anchor{{layershell.LayerShellEdgeBottom, offsetY}, {layershell.LayerShellEdgeLeft, offsetX}}
	case config.PositionBottomCenter:
		return []anchor{{layershell.LayerShellEdgeBottom, offsetY}}
	default:
		return []anchor{{layershell.LayerShellEdgeBottom, offsetY}, {layershell.LayerShellEdgeRight, offsetX}}
	}
}

// visibleRows returns the newest max notifications, oldest first.
func visibleRows(notifications []model.Notification, max int) []model.Notification {
	if max <= 0 || len(notifications) <= max {
		return notifications
	}
	return notifications[len(notifications)-max:]
}

// rowText returns the label text for a notification.
func rowText(n model.Notification) string {
	return n.TextTruncated(maxRowChars)
}

// cssClass returns the per-instance CSS class for a popup window.
func cssClass(instanceID string) string {
	return "notiwin-" + strings.ToLower(instanceID)
}

// fontCSS converts a Pango style font description such as "Sans Bold 11"
// into CSS declarations. Style words are left to Pango defaults.
func fontCSS(desc string) string {
	fields := strings.Fields(desc)
	if len(fields) == 0 {
		return ""
	}

	var b strings.Builder
	if size, err := strconv.ParseFloat(fields[len(fields)-1], 64); err == nil && size > 0 {
		fields = fields[:len(fields)-1]
		fmt.Fprintf(&b, "font-size: %gpt; ", size)
	}
	if len(fields) > 0 {
		fmt.Fprintf(&b, "font-family: %q; ", strings.Join(fields, " "))
	}
	return strings.TrimSpace(b.String())
}

// popupCSS returns the stylesheet for one popup window.
func popupCSS(class, background, font string) string {
	css := fmt.Sprintf("window.%s { background-color: %s; }\n", class, background)
	if f := fontCSS(font); f != "" {
		css += fmt.Sprintf("window.%s label { %s }\n", class, f)
	}
	return css
}

// monitorFor returns the configured monitor (1-indexed), or nil to let the
// compositor choose. Out of range values fall back to the first monitor.
func monitorFor(display *gdk.Display, monitorNum int, logger *slog.Logger) *gdk.Monitor {
	if display == nil || monitorNum == 0 {
		return nil
	}

	monitors := display.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		logger.Warn("no monitors list available")
		return nil
	}

	index := uint(monitorNum - 1)
	if index >= monitors.NItems() {
		logger.Warn("configured monitor not available, using first",
			"configured", monitorNum,
			"available", monitors.NItems(),
		)
		index = 0
	}

	return wrapMonitor(monitors.Item(index))
}

// wrapMonitor wraps a glib.Object as a gdk.Monitor.
// gotk4 does not export its own wrapper; gdk.Monitor embeds *glib.Object.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

// recoverBuild runs build and reports whether it completed. If build panics
// the panic is logged, cleanup releases anything partially created and
// dismiss is called, so the fault stays on this popup.
func recoverBuild(logger *slog.Logger, build, cleanup, dismiss func()) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ok = false
		logger.Error("popup build panicked, dismissing", "panic", r)
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("popup cleanup panicked", "panic", r)
				}
			}()
			cleanup()
		}()
		dismiss()
	}()

	build()
	return true
}
