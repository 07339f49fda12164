package cli

import "errors"

// reportedError marks an error already printed to stderr by writeErr.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// cancelledError is returned when the user declines a confirmation prompt.
type cancelledError struct{ what string }

func (e cancelledError) Error() string { return e.what + " cancelled" }
