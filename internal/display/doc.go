// Package display renders popups as GTK4 layer-shell windows.
// Every presenter call is marshalled onto the GTK main loop with glib.IdleAdd.
package display
