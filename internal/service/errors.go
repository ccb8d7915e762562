// Package service holds the claim lifecycle engine and the user
// directory. Both operate on small store interfaces so they can be
// exercised in tests without a database or any HTTP scaffolding.
package service

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a claim action is not allowed
// for the actor's role, or when the claim is not in the status the
// action requires (including losing a race against a concurrent
// transition). The claim is left untouched in every case.
var ErrInvalidTransition = errors.New("transition not allowed for this role and claim status")

// ErrInvalidCredentials is returned when no account matches the
// email and role, or the password does not verify. It deliberately
// does not say which.
var ErrInvalidCredentials = errors.New("invalid email, password or role")

// ErrNotApproved is returned when the credentials verify but the
// lecturer account has not yet been activated by HR. This is not a
// credential failure and must be reported distinctly.
var ErrNotApproved = errors.New("account is awaiting HR approval")

// ValidationError describes one malformed or out-of-range input
// field. Each violated rule produces its own ValidationError so the
// caller can render one actionable message per rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
