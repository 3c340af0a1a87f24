package queue

import (
	"context"

	"github.com/veriq-io/veriq/pkg/models"
	"github.com/veriq-io/veriq/pkg/planner"
)

// PlannerExecutor runs the planner state machine for claimed sessions.
type PlannerExecutor struct {
	planner *planner.Planner
}

// NewPlannerExecutor wraps a planner as a queue executor.
func NewPlannerExecutor(p *planner.Planner) *PlannerExecutor {
	return &PlannerExecutor{planner: p}
}

// Execute drives the session through the planner. The planner finalizes its
// own outcomes, including FAILED; an error here means a store write failed
// mid-run and the session may be left non-terminal.
func (e *PlannerExecutor) Execute(ctx context.Context, session models.Session) error {
	_, err := e.planner.Run(ctx, session.ID, session.Question)
	return err
}
