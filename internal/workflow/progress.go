package workflow

// Mode tells why an application sits at a given point of the pipeline.
type Mode string

const (
	ModeActive  Mode = "active"
	ModeFailed  Mode = "failed"
	ModeOnHold  Mode = "on_hold"
	ModeUnknown Mode = "unknown"
)

// StepState is the visual state of a single stage.
type StepState string

const (
	StepStateCompleted StepState = "completed"
	StepStateCurrent   StepState = "current"
	StepStatePending   StepState = "pending"
	StepStateFailed    StepState = "failed"
)

// StepView is a stage rendered for one application.
type StepView struct {
	Key   StepKey   `json:"key"`
	Label string    `json:"label"`
	State StepState `json:"state"`
}

// Progress is the display projection of a status.
//
// CurrentStep is -1 whenever the status matches no stage. Failed mirrors that
// sentinel, so on_hold and unrecognised statuses also report Failed; Mode and
// FailureReason are what distinguish them from a real failure.
type Progress struct {
	Status        Status     `json:"status"`
	CurrentStep   int        `json:"currentStep"`
	Failed        bool       `json:"isFailed"`
	Mode          Mode       `json:"mode"`
	FailureReason string     `json:"failureReason,omitempty"`
	Description   string     `json:"description"`
	Steps         []StepView `json:"steps"`
}

var descriptions = map[Status]string{
	StatusPending:               "Your application has been received and is waiting for review.",
	StatusUnderReview:           "HR is reviewing your application.",
	StatusPsychometricScheduled: "Your psychometric test has been scheduled.",
	StatusPsychometricCompleted: "Your psychometric test is done and awaiting results.",
	StatusPsychometricPassed:    "You passed the psychometric test.",
	StatusPsychometricFailed:    "You did not pass the psychometric test.",
	StatusInterviewScheduled:    "Your interview has been scheduled.",
	StatusInterviewCompleted:    "Your interview is done and awaiting results.",
	StatusInterviewPassed:       "You passed the interview.",
	StatusInterviewFailed:       "You did not pass the interview.",
	StatusTrainee:               "You are currently in training.",
	StatusTrainingCompleted:     "You have completed training and await final acceptance.",
	StatusAccepted:              "Congratulations, you have been accepted as a scholar.",
	StatusRejected:              "Your application was not accepted.",
	StatusWithdrawn:             "Your application was withdrawn.",
	StatusOnHold:                "Your application is on hold.",
}

var failureReasons = map[Status]string{
	StatusPsychometricFailed: "Application ended at the psychometric test.",
	StatusInterviewFailed:    "Application ended at the interview.",
	StatusRejected:           "Application was rejected.",
	StatusWithdrawn:          "Application was withdrawn.",
}

// Describe returns the applicant-facing sentence for s.
func Describe(s Status) string {
	return descriptions[s]
}

// Classify projects s onto the pipeline stages. It is pure and total.
func Classify(s Status) Progress {
	p := Progress{Status: s, CurrentStep: -1, Description: descriptions[s]}

	switch {
	case s.IsFailure():
		p.Mode = ModeFailed
		p.FailureReason = failureReasons[s]
	default:
		p.CurrentStep = StepIndex(s)
		switch {
		case p.CurrentStep >= 0:
			p.Mode = ModeActive
		case s == StatusOnHold:
			p.Mode = ModeOnHold
		default:
			p.Mode = ModeUnknown
		}
	}
	p.Failed = p.CurrentStep == -1

	failedAt := failedStep(s)
	p.Steps = make([]StepView, len(steps))
	for i, st := range steps {
		p.Steps[i] = StepView{Key: st.Key, Label: st.Label, State: stepState(i, p.CurrentStep, p.Mode, failedAt)}
	}
	return p
}

// failedStep is the stage a failure status ended at, -1 when the failure has
// no stage of its own (rejected, withdrawn) or s is not a failure.
func failedStep(s Status) int {
	switch s {
	case StatusPsychometricFailed:
		return indexOf(StepPsychometric)
	case StatusInterviewFailed:
		return indexOf(StepInterview)
	}
	return -1
}

func stepState(index, current int, mode Mode, failedAt int) StepState {
	if mode == ModeFailed {
		// Stages up to the one the application ended at are all coloured failed.
		if failedAt < 0 || index <= failedAt {
			return StepStateFailed
		}
		return StepStatePending
	}
	switch {
	case current < 0:
		return StepStatePending
	case index < current:
		return StepStateCompleted
	case index == current:
		return StepStateCurrent
	default:
		return StepStatePending
	}
}

func indexOf(key StepKey) int {
	for i, st := range steps {
		if st.Key == key {
			return i
		}
	}
	return -1
}
