package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// SendNotification sends a notification to whichever daemon owns the
// notification bus name and returns its ID.
func SendNotification(ctx context.Context, appName, summary, body string, urgency byte) (uint32, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgency),
	}

	var id uint32
	obj := conn.Object(DBusBusName, dbus.ObjectPath(DBusPath))
	call := obj.CallWithContext(ctx, DBusInterface+".Notify", 0,
		appName, uint32(0), "", summary, body, []string{}, hints, int32(-1))
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("notify failed: %w", err)
	}
	return id, nil
}
