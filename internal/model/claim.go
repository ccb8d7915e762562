package model

import (
	"time"

	"github.com/google/uuid"
)

// ClaimStatus is the state of a claim inside the approval pipeline.
// Statuses are stored upper-case in the `claims` table. APPROVED and
// REJECTED are terminal; no transition leaves them.
type ClaimStatus string

const (
	StatusPending  ClaimStatus = "PENDING"
	StatusVerified ClaimStatus = "VERIFIED"
	StatusApproved ClaimStatus = "APPROVED"
	StatusRejected ClaimStatus = "REJECTED"
)

// Terminal reports whether no further transition is permitted from s.
func (s ClaimStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ValidClaimStatus reports whether s names one of the four statuses.
func ValidClaimStatus(s string) bool {
	switch ClaimStatus(s) {
	case StatusPending, StatusVerified, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Claim represents a lecturer's monthly hours submission as stored in
// the `claims` table. Lecturer name, email and hourly rate are copied
// from the user record at submission time so that later HR edits do
// not rewrite historical claims. Only the status (and version) fields
// ever change after creation.
//
// Fields:
//  ID            – opaque primary key (UUID).
//  LecturerName  – lecturer display name at submission time.
//  LecturerEmail – lecturer email at submission time.
//  HoursWorked   – claimed hours, 1..180.
//  RateCents     – hourly rate snapshot in cents, 5000..200000.
//  Notes         – optional free text, at most 250 characters.
//  Status        – current pipeline state.
//  Version       – bumped on every status transition (optimistic check).
//  CreatedAt     – UTC submission timestamp, immutable.
//  Attachments   – supporting documents uploaded with the claim.
type Claim struct {
	ID            uuid.UUID    // claims.id
	LecturerName  string       // claims.lecturer_name
	LecturerEmail string       // claims.lecturer_email
	HoursWorked   int          // claims.hours_worked
	RateCents     int64        // claims.rate_cents
	Notes         string       // claims.notes
	Status        ClaimStatus  // claims.status
	Version       uint32       // claims.version
	CreatedAt     time.Time    // claims.created_at
	Attachments   []Attachment // joined from attachments
}

// TotalCents is the monetary value of the claim. It is derived on
// every read and never persisted, so it cannot drift from the hours
// and rate it is computed from.
func (c *Claim) TotalCents() int64 {
	return int64(c.HoursWorked) * c.RateCents
}

// Attachment records the metadata of one uploaded document belonging
// to a claim. The bytes themselves live in the blob store under
// SavedAs; the database keeps metadata only. Attachments are
// immutable once written.
//
// Fields:
//  ID       – primary key identifier.
//  ClaimID  – owning claim.
//  FileName – original filename as uploaded.
//  SavedAs  – storage-assigned unique name (uuid + extension).
//  Size     – declared size in bytes.
type Attachment struct {
	ID       uint64    // attachments.id
	ClaimID  uuid.UUID // attachments.claim_id
	FileName string    // attachments.file_name
	SavedAs  string    // attachments.saved_as
	Size     int64     // attachments.size
}

// ReportRow is one line of the HR payment report: all approved claims
// of a single lecturer collapsed into summed hours and summed amount.
type ReportRow struct {
	LecturerName     string `json:"lecturer_name"`
	LecturerEmail    string `json:"lecturer_email"`
	TotalHours       int64  `json:"total_hours"`
	TotalAmountCents int64  `json:"total_amount_cents"`
}
