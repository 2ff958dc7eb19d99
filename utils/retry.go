package utils

import "time"

// Delays before each delivery attempt, indexed by attempt number - 1.
var (
	ProductionRetryIntervals = []time.Duration{0, time.Minute, 5 * time.Minute, 30 * time.Minute, 2 * time.Hour}
	TestRetryIntervals       = []time.Duration{0, 5 * time.Second, 10 * time.Second, 15 * time.Second, 20 * time.Second}
)

type RetrySchedule struct {
	Intervals []time.Duration
}

func NewRetrySchedule(fast bool) RetrySchedule {
	if fast {
		return RetrySchedule{Intervals: TestRetryIntervals}
	}
	return RetrySchedule{Intervals: ProductionRetryIntervals}
}

// MaxAttempts is the total delivery attempts allowed for one event.
func (s RetrySchedule) MaxAttempts() int {
	return len(s.Intervals)
}

// NextRetryAt returns when the attempt after attemptsMade should run.
// ok is false once the budget is spent.
func (s RetrySchedule) NextRetryAt(attemptsMade int, now time.Time) (time.Time, bool) {
	if attemptsMade < 0 || attemptsMade >= len(s.Intervals) {
		return time.Time{}, false
	}
	return now.Add(s.Intervals[attemptsMade]), true
}
