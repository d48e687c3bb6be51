package popup

import (
	"github.com/jmylchreest/notiwin/internal/model"
)

// View is an immutable snapshot handed to a Presenter.
type View struct {
	Notifications []model.Notification // oldest first
	HasError      bool
	Background    string // "#rrggbb"
}

// Presenter renders one popup instance.
//
// Implementations own their UI thread and must marshal every call onto it.
// Calls must not block waiting for that thread.
type Presenter interface {
	// Render replaces the displayed rows and background colour.
	Render(view View)
	// ClearSelection drops any highlighted row.
	ClearSelection()
	// SetOpacity sets the window opacity in [0, 1].
	SetOpacity(opacity float64)
	// Close destroys the popup window.
	Close()
}

// PresenterFactory creates a Presenter for each new popup instance.
// dismiss closes the instance early, typically on a click; it is safe to
// call from any goroutine and more than once.
type PresenterFactory interface {
	NewPresenter(instanceID string, dismiss func()) (Presenter, error)
}

// PresenterFactoryFunc adapts a function to a PresenterFactory.
type PresenterFactoryFunc func(instanceID string, dismiss func()) (Presenter, error)

// NewPresenter calls f.
func (f PresenterFactoryFunc) NewPresenter(instanceID string, dismiss func()) (Presenter, error) {
	return f(instanceID, dismiss)
}
