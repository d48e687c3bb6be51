// Package dbus implements the org.freedesktop.Notifications D-Bus interface
// on top of the popup controller. Notify calls become popup messages, with
// critical urgency mapped to error severity.
package dbus
