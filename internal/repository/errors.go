// Package repository defines error values that are reused across the
// user, claim and activity repositories. These sentinel values allow
// higher layers such as services and handlers to distinguish between
// failure scenarios with errors.Is instead of inspecting driver
// errors. Any error that is not one of these sentinels is a storage
// fault and should be treated as such by callers.
package repository

import "errors"

// ErrNotFound is returned when a lookup by id (or email) matches no
// row. Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("record not found")

// ErrEmailExists is returned when an insert or update would violate
// the unique email constraint. Handlers should translate this into
// an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrStaleStatus is returned by ClaimRepo.UpdateStatus when the claim
// exists but its current status no longer matches the expected one,
// meaning another writer transitioned the claim first. The caller's
// view of the claim was stale; nothing was written.
var ErrStaleStatus = errors.New("claim status changed concurrently")
