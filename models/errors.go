package models

import "errors"

// ErrRateLimited is returned when a user already contributed for an
// archetype within the contribution window.
var ErrRateLimited = errors.New("rate_limited")

// ValidationError covers malformed or missing request fields, including an
// out-of-enum archetype. It always maps to a 400 response.
type ValidationError struct {
	Message         string
	ValidArchetypes []string
}

func (e *ValidationError) Error() string {
	return e.Message
}
