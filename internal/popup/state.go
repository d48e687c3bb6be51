package popup

// State is the lifecycle state of a popup instance.
type State int

const (
	// StateClosed means no popup is shown.
	StateClosed State = iota
	// StateOpening means the presenter exists but the poll timer has not started.
	StateOpening
	// StateVisible means the popup is shown and polled for expired messages.
	StateVisible
	// StateDraining means the popup was detached and is being emptied.
	StateDraining
	// StateClosing means the popup is fading out.
	StateClosing
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpening:  "opening",
	StateVisible:  "visible",
	StateDraining: "draining",
	StateClosing:  "closing",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
