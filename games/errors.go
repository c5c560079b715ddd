/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrSessionBusy     = errors.New("session is busy with another request")
)

// ValidationError reports a malformed request. Returning one never mutates
// session state.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
