package agenda

import "errors"

var (
	// ErrInvalidInput is returned when a booking request carries a malformed
	// date, time or email. It is checked before any external call.
	ErrInvalidInput = errors.New("agenda: invalid booking input")

	// ErrUpstream is returned when a calendar provider fails at the
	// transport level.
	ErrUpstream = errors.New("agenda: calendar provider request failed")
)
