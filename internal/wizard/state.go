package wizard

import (
	"creator-match/internal/models"
)

// Step is the active wizard screen.
type Step string

const (
	StepBusinessInput Step = "business-input"
	StepCreatorInput  Step = "creator-input"
	StepResults       Step = "results"
)

// Progress is the 1-based position of the step, as shown by the step indicator.
func (s Step) Progress() int {
	switch s {
	case StepCreatorInput:
		return 2
	case StepResults:
		return 3
	default:
		return 1
	}
}

func (s Step) Valid() bool {
	return s == StepBusinessInput || s == StepCreatorInput || s == StepResults
}

// State is the form state store. Snapshot hands out deep copies so renderers
// and persistence never alias controller-owned data.
type State struct {
	Step     Step                    `json:"step"`
	Progress int                     `json:"progress"`
	Business models.BusinessProfile  `json:"business"`
	Creator  models.CreatorProfile   `json:"creator"`
	Result   *models.MatchResult     `json:"result,omitempty"`
	Email    *models.EmailSubmission `json:"email,omitempty"`
}

func initialState() State {
	return State{Step: StepBusinessInput, Progress: StepBusinessInput.Progress()}
}

func (s State) clone() State {
	out := s
	out.Progress = s.Step.Progress()
	out.Result = s.Result.Clone()
	if s.Email != nil {
		email := *s.Email
		out.Email = &email
	}
	return out
}
