// Package workflow models the applicant pipeline: the named application
// statuses, the six progress steps they roll up into, and the transitions HR
// and office staff may perform between them.
package workflow

import "strings"

// Status is the persisted state of an application.
type Status string

const (
	StatusPending               Status = "pending"
	StatusUnderReview           Status = "under_review"
	StatusPsychometricScheduled Status = "psychometric_scheduled"
	StatusPsychometricCompleted Status = "psychometric_completed"
	StatusPsychometricPassed    Status = "psychometric_passed"
	StatusPsychometricFailed    Status = "psychometric_failed"
	StatusInterviewScheduled    Status = "interview_scheduled"
	StatusInterviewCompleted    Status = "interview_completed"
	StatusInterviewPassed       Status = "interview_passed"
	StatusInterviewFailed       Status = "interview_failed"
	StatusTrainee               Status = "trainee"
	StatusTrainingCompleted     Status = "training_completed"
	StatusAccepted              Status = "accepted"
	StatusRejected              Status = "rejected"
	StatusWithdrawn             Status = "withdrawn"
	StatusOnHold                Status = "on_hold"
)

var allStatuses = []Status{
	StatusPending,
	StatusUnderReview,
	StatusPsychometricScheduled,
	StatusPsychometricCompleted,
	StatusPsychometricPassed,
	StatusPsychometricFailed,
	StatusInterviewScheduled,
	StatusInterviewCompleted,
	StatusInterviewPassed,
	StatusInterviewFailed,
	StatusTrainee,
	StatusTrainingCompleted,
	StatusAccepted,
	StatusRejected,
	StatusWithdrawn,
	StatusOnHold,
}

// All returns every known status in pipeline order.
func All() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Parse normalises raw input into a known status.
func Parse(raw string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range allStatuses {
		if s == candidate {
			return s, true
		}
	}
	return candidate, false
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if known == s {
			return true
		}
	}
	return false
}

// IsFailure reports whether s ends the pipeline unsuccessfully.
func (s Status) IsFailure() bool {
	switch s {
	case StatusPsychometricFailed, StatusInterviewFailed, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// StepKey identifies one of the displayed pipeline stages.
type StepKey string

const (
	StepReview           StepKey = "review"
	StepPsychometric     StepKey = "psychometric"
	StepInterview        StepKey = "interview"
	StepTrainee          StepKey = "trainee"
	StepTrainingComplete StepKey = "training_complete"
	StepAccepted         StepKey = "accepted"
)

// Step is a displayed stage and the statuses that place an application in it.
type Step struct {
	Key      StepKey  `json:"key"`
	Label    string   `json:"label"`
	Statuses []Status `json:"statuses"`
}

var steps = []Step{
	{Key: StepReview, Label: "Review", Statuses: []Status{StatusPending, StatusUnderReview}},
	{Key: StepPsychometric, Label: "Psychometric Test", Statuses: []Status{StatusPsychometricScheduled, StatusPsychometricCompleted, StatusPsychometricPassed}},
	{Key: StepInterview, Label: "Interview", Statuses: []Status{StatusInterviewScheduled, StatusInterviewCompleted, StatusInterviewPassed}},
	{Key: StepTrainee, Label: "Trainee", Statuses: []Status{StatusTrainee}},
	{Key: StepTrainingComplete, Label: "Training Complete", Statuses: []Status{StatusTrainingCompleted}},
	{Key: StepAccepted, Label: "Accepted", Statuses: []Status{StatusAccepted}},
}

// Steps returns the ordered pipeline stages.
func Steps() []Step {
	out := make([]Step, len(steps))
	for i, st := range steps {
		out[i] = Step{Key: st.Key, Label: st.Label, Statuses: append([]Status(nil), st.Statuses...)}
	}
	return out
}

// StepIndex returns the stage containing s, or -1 when no stage does.
func StepIndex(s Status) int {
	for i, st := range steps {
		for _, member := range st.Statuses {
			if member == s {
				return i
			}
		}
	}
	return -1
}
