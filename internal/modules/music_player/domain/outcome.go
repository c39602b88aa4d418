package domain

// OutcomeKind describes how a single AudioSink playback ended.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeFailed
	OutcomeCancelled
)

// String returns the lowercase outcome name.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// PlaybackOutcome is the single completion signal of one AudioSink.Play call.
type PlaybackOutcome struct {
	Kind OutcomeKind
	Err  error // set when Kind is OutcomeFailed
}

// Completed returns a normal-end outcome.
func Completed() PlaybackOutcome {
	return PlaybackOutcome{Kind: OutcomeCompleted}
}

// Failed returns a playback-error outcome.
func Failed(err error) PlaybackOutcome {
	return PlaybackOutcome{Kind: OutcomeFailed, Err: err}
}

// Cancelled returns a cancelled outcome.
func Cancelled() PlaybackOutcome {
	return PlaybackOutcome{Kind: OutcomeCancelled}
}
