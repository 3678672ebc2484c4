package commands

import (
	"context"
	"fmt"
)

// PlanCommand toggles planning mode.
type PlanCommand struct{}

func (c *PlanCommand) Name() string {
	return "plan"
}

func (c *PlanCommand) Description() string {
	return "Toggle planning mode for complex multi-step tasks"
}

func (c *PlanCommand) Usage() string {
	return "/plan"
}

func (c *PlanCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	// Toggle planning mode
	enabled := app.TogglePlanningMode()

	if enabled {
		return "Planning mode ON — complex tasks will be broken into steps with approval\n\nTip: Press Shift+Tab to toggle quickly", nil
	}
	return "Planning mode OFF — direct execution\n\nTip: Press Shift+Tab to toggle quickly", nil
}

// GetMetadata returns command metadata for palette display.
func (c *PlanCommand) GetMetadata() CommandMetadata {
	return CommandMetadata{
		Category: CategoryPlanning,
		Icon:     "tree",
		ArgHint:  "",
		Priority: 0, // Top of planning category
	}
}

// ResumePlanCommand resumes the most recently paused plan, if one was
// found on disk at startup.
type ResumePlanCommand struct{}

func (c *ResumePlanCommand) Name() string {
	return "resume-plan"
}

func (c *ResumePlanCommand) Description() string {
	return "Resume the most recently paused plan"
}

func (c *ResumePlanCommand) Usage() string {
	return "/resume-plan"
}

func (c *ResumePlanCommand) Execute(ctx context.Context, args []string, app AppInterface) (string, error) {
	pm := app.GetPlanManager()
	if pm == nil {
		return "Planning is not available.", nil
	}

	plans, err := pm.ListResumablePlans()
	if err != nil {
		return "", fmt.Errorf("failed to list resumable plans: %w", err)
	}
	if len(plans) == 0 {
		return "No paused plans found to resume.", nil
	}

	p := plans[0]
	pm.SetPlan(p)
	return fmt.Sprintf("Resumed plan %q (%d/%d steps complete).", p.Title, p.CompletedCount(), p.StepCount()), nil
}

// GetMetadata returns command metadata for palette display.
func (c *ResumePlanCommand) GetMetadata() CommandMetadata {
	return CommandMetadata{
		Category: CategoryPlanning,
		Icon:     "tree",
		ArgHint:  "",
		Priority: 1,
	}
}
