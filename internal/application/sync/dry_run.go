package sync

import (
	"context"

	"github.com/google/uuid"
)

// DryRunExecutor runs the full sync pipeline without mutating the target
// platform or the reference store. It shares the orchestrator's code path;
// the only difference is that writes are replaced by change previews, so a
// dry run exercises exactly the mappings, transformations and direction
// decisions a real run would.
//
// Read-only platform calls (fetches, natural-key probes) still happen, so a
// dry run can surface transient and credential failures too.
type DryRunExecutor struct {
	orchestrator *Orchestrator
}

// NewDryRunExecutor creates a dry run executor
func NewDryRunExecutor(orchestrator *Orchestrator) *DryRunExecutor {
	return &DryRunExecutor{orchestrator: orchestrator}
}

// Execute performs a dry run and returns the would-be changes. The run is
// recorded in run history with its dry-run flag set and takes the same
// per-(tenant, route) lock as a real run.
func (e *DryRunExecutor) Execute(ctx context.Context, req RunRequest) (*RunResult, error) {
	req.DryRun = true
	return e.orchestrator.Run(ctx, req)
}

// Summary condenses a dry run's previews for operator display.
type Summary struct {
	RunID   uuid.UUID       `json:"run_id"`
	Creates int             `json:"creates"`
	Updates int             `json:"updates"`
	Skips   int             `json:"skips"`
	Changes []ChangePreview `json:"changes"`
}

// Summarize tallies a dry run result
func Summarize(result *RunResult) Summary {
	s := Summary{RunID: result.Run.ID, Changes: result.Previews}
	for _, p := range result.Previews {
		switch p.Action {
		case "create":
			s.Creates++
		case "update":
			s.Updates++
		case "skip":
			s.Skips++
		}
	}
	return s
}
