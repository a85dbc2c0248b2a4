package xmodem

// RetryPolicy bounds the attempts made for one packet exchange.
type RetryPolicy struct {
	// Attempts is the number of tries per packet; values below 1 mean MaxAttempts
	Attempts int
}

// DefaultRetryPolicy returns the standard bound of MaxAttempts tries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: MaxAttempts}
}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return MaxAttempts
	}
	return p.Attempts
}

// Retryable reports whether err consumes one attempt instead of ending the
// transfer. Only ErrInterrupted faults are retried.
func Retryable(err error) bool {
	return IsInterrupted(err)
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempt bound is used up. what names the exchange in the ErrBrokenPipe
// returned on exhaustion.
func (p RetryPolicy) Do(what string, fn func(attempt int) error) error {
	var last error
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		last = err
	}
	return WrapError(ErrBrokenPipe, what, last)
}
