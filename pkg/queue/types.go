// Package queue turns the database into the work queue: submit writes an
// INIT session row, workers claim the oldest unclaimed row atomically and
// drive it to a terminal state. Claim markers on the row make sessions
// recoverable when a worker or a whole pod dies mid-run.
package queue

import (
	"context"
	"errors"

	"github.com/veriq-io/veriq/pkg/models"
)

// ErrNoSessionsAvailable indicates no pending sessions are in the queue.
var ErrNoSessionsAvailable = errors.New("no sessions available")

// SessionExecutor drives one claimed session to a terminal state.
//
// The executor owns the session lifecycle internally: state transitions,
// audit rows, and the terminal status are written progressively while it
// runs. A nil return means the session reached DONE or FAILED on its own; a
// non-nil error means the session may be stuck non-terminal and the worker
// must fail it best-effort.
type SessionExecutor interface {
	Execute(ctx context.Context, session models.Session) error
}
