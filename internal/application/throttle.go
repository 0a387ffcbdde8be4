package application

import "time"

const (
	errorCodeSuccess  = 1
	errorCodeThrottle = 36
)

// ThrottlePolicy decides whether a throttled call is rescheduled and after how long.
type ThrottlePolicy struct {
	MaxRetries int
}

func (p ThrottlePolicy) Delay(throttleSeconds int) time.Duration {
	if throttleSeconds <= 0 {
		return time.Second
	}
	return time.Duration(throttleSeconds) * time.Second
}

// Allow reports whether attempt (zero-based count of reschedules already done)
// may be retried again.
func (p ThrottlePolicy) Allow(attempt int) bool {
	if p.MaxRetries < 0 {
		return true
	}
	return attempt < p.MaxRetries
}

func benignErrorCode(code int) bool {
	return code == 0 || code == errorCodeSuccess
}
