// Package popup implements the lifecycle of the transient notification popup.
//
// A Controller accepts messages from any goroutine, queues them for a single
// worker, and shows them in a popup instance. Each instance owns a
// notification store, a poll timer and a Presenter. The poll timer evicts
// expired messages; once nothing is left the instance is detached, faded out
// and closed, and the next message opens a fresh instance.
package popup
