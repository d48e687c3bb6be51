// Package daemon holds the long-running helpers notiwind wires around the
// popup controller: configuration hot-reload and internal status messages.
package daemon
