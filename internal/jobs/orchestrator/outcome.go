package orchestrator

type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota + 1
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StageOutcome is the tagged result of one stage. Detail is the summary on
// success and the error message on failure.
type StageOutcome struct {
	Kind   OutcomeKind
	Detail string
	Err    error
}

func Succeeded(detail string) StageOutcome {
	return StageOutcome{Kind: OutcomeSucceeded, Detail: detail}
}

func Failed(err error) StageOutcome {
	return StageOutcome{Kind: OutcomeFailed, Detail: errString(err), Err: err}
}

func (o StageOutcome) Status() StageStatus {
	if o.Kind == OutcomeSucceeded {
		return StageSucceeded
	}
	return StageFailed
}

// StageClass decides what a failed outcome does to the run.
type StageClass int

const (
	// Mandatory stages abort the run on failure.
	Mandatory StageClass = iota
	// Optional stages record the failure and let the run continue.
	Optional
)

func (c StageClass) String() string {
	if c == Optional {
		return "optional"
	}
	return "mandatory"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
