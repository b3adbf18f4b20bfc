package fetch

import "errors"

// TransientError marks a failure worth retrying: network errors, timeouts,
// 5xx responses and rate limits.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient fetch failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure that will not improve with retries:
// unreachable or malformed sites, 4xx responses.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent fetch failure: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func transient(err error) error {
	return &TransientError{Err: err}
}

func permanent(err error) error {
	return &PermanentError{Err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
