// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// ClaimDecidedEvent is published whenever a coordinator or manager
// decision lands on a claim (verified, approved or rejected). It
// carries enough information for downstream consumers to notify the
// lecturer or feed payroll without querying the primary database.
type ClaimDecidedEvent struct {
	ClaimID       string `json:"claim_id"`
	LecturerName  string `json:"lecturer_name"`
	LecturerEmail string `json:"lecturer_email"`
	HoursWorked   int    `json:"hours_worked"`
	TotalCents    int64  `json:"total_cents"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	ActorRole     string `json:"actor_role"`
	DecidedAt     string `json:"decided_at"`
}
