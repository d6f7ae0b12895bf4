package workflow

// resumable lists where an on_hold application may continue from.
var resumable = []Status{
	StatusPending,
	StatusUnderReview,
	StatusPsychometricScheduled,
	StatusPsychometricPassed,
	StatusInterviewScheduled,
	StatusInterviewPassed,
	StatusTrainee,
	StatusTrainingCompleted,
	StatusRejected,
	StatusWithdrawn,
}

// transitions is the allowed next-status table. Statuses without an entry are terminal.
var transitions = map[Status][]Status{
	StatusPending:               {StatusUnderReview, StatusRejected, StatusWithdrawn, StatusOnHold},
	StatusUnderReview:           {StatusPsychometricScheduled, StatusInterviewScheduled, StatusRejected, StatusWithdrawn, StatusOnHold},
	StatusPsychometricScheduled: {StatusPsychometricCompleted, StatusRejected, StatusWithdrawn, StatusOnHold},
	StatusPsychometricCompleted: {StatusPsychometricPassed, StatusPsychometricFailed},
	StatusPsychometricPassed:    {StatusInterviewScheduled, StatusRejected, StatusWithdrawn, StatusOnHold},
	StatusInterviewScheduled:    {StatusInterviewCompleted, StatusRejected, StatusWithdrawn, StatusOnHold},
	StatusInterviewCompleted:    {StatusInterviewPassed, StatusInterviewFailed},
	StatusInterviewPassed:       {StatusTrainee, StatusRejected, StatusWithdrawn, StatusOnHold},
	StatusTrainee:               {StatusTrainingCompleted, StatusRejected, StatusWithdrawn, StatusOnHold},
	StatusTrainingCompleted:     {StatusAccepted, StatusRejected, StatusOnHold},
	StatusAccepted:              {StatusWithdrawn},
	StatusOnHold:                resumable,
}

// Transitions returns the statuses reachable from s in one step.
func Transitions(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether moving from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
