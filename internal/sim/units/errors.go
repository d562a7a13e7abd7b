package units

import (
	"fmt"

	"hivecore.ai/internal/sim/game"
)

// ActionError reports a world command that answered with a code the unit has
// no rule for.
type ActionError struct {
	Unit   string
	Action string
	Code   game.ReturnCode
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s couldn't %s: %s", e.Unit, e.Action, e.Code)
}

// ContextError reports a unit acting without something the action needs,
// such as a visible room controller.
type ContextError struct {
	Unit    string
	Missing string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("%s has no %s", e.Unit, e.Missing)
}
