package popup

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/notiwin/internal/store"
	"github.com/jmylchreest/notiwin/internal/timer"
)

// instance is one popup window and everything it owns.
// state is guarded by Controller.mu.
type instance struct {
	id        string
	store     *store.Store
	timer     *timer.Coordinator
	presenter Presenter
	state     State

	// renderMu orders snapshots with the presenter calls that show them.
	renderMu sync.Mutex
	closed   bool
}

// newInstanceID returns a ULID for log and metrics correlation.
func newInstanceID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}
