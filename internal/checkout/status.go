package checkout

type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusSubmitting Status = "SUBMITTING"
	StatusSucceeded  Status = "SUCCEEDED"
	StatusFailed     Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// CanTransitionTo reports whether an attempt may move from s to next. A
// finished attempt may start over so the shopper can retry or order again.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusIdle, StatusSucceeded, StatusFailed:
		return next == StatusSubmitting
	case StatusSubmitting:
		return next.IsTerminal()
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
