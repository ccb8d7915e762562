package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/repository"
)

// ClaimStore is the slice of the claim record store the engine needs.
// *repository.ClaimRepo satisfies it; tests use in-memory fakes.
type ClaimStore interface {
	Create(ctx context.Context, c *model.Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Claim, error)
	GetAll(ctx context.Context) ([]model.Claim, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ClaimStatus) (*model.Claim, error)
	ListByStatus(ctx context.Context, status model.ClaimStatus) ([]model.Claim, error)
	ListByLecturer(ctx context.Context, email string) ([]model.Claim, error)
	History(ctx context.Context, f repository.HistoryFilter) ([]model.Claim, error)
	ReportRows(ctx context.Context) ([]model.ReportRow, error)
}

// ActivityStore records actor activity. *repository.ActivityRepo
// satisfies it.
type ActivityStore interface {
	Append(ctx context.Context, e model.ActivityEntry) error
	ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]model.ActivityEntry, error)
}

// Actor identifies who is performing a claim operation. The identity
// is supplied by the session layer (JWT middleware) and trusted here;
// the role decides which transitions are permitted.
type Actor struct {
	ID    uuid.UUID
	Role  model.Role
	Email string
}

// Action names a claim operation requested by an actor.
type Action string

const (
	ActionVerify  Action = "verify"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Claim submission bounds. Hours and rate limits mirror the payroll
// policy; the rate is a snapshot taken from the lecturer's user
// record at submission time.
const (
	MinHours     = 1
	MaxHours     = 180
	MinRateCents = 5_000   // 50.00 per hour
	MaxRateCents = 200_000 // 2000.00 per hour
	MaxNotesLen  = 250
)

// transition is one permitted edge of the claim state machine.
type transition struct {
	from model.ClaimStatus
	to   model.ClaimStatus
}

// transitions is the full state machine: which role may run which
// action, from which status, into which status. Anything absent from
// this table is an invalid transition. APPROVED and REJECTED appear
// in no `from` position, which is what makes them terminal.
var transitions = map[model.Role]map[Action]transition{
	model.RoleCoordinator: {
		ActionVerify: {from: model.StatusPending, to: model.StatusVerified},
		ActionReject: {from: model.StatusPending, to: model.StatusRejected},
	},
	model.RoleManager: {
		ActionApprove: {from: model.StatusVerified, to: model.StatusApproved},
		ActionReject:  {from: model.StatusVerified, to: model.StatusRejected},
	},
}

// Engine is the claim lifecycle state machine plus its read-side
// projections. It holds no state of its own between calls; every
// operation reads or writes through the claim store.
type Engine struct {
	claims   ClaimStore
	activity ActivityStore
}

// NewEngine constructs an Engine. The activity store may be nil, in
// which case transitions are not journaled.
func NewEngine(claims ClaimStore, activity ActivityStore) *Engine {
	if claims == nil {
		panic("nil claim store passed to NewEngine")
	}
	return &Engine{claims: claims, activity: activity}
}

// Submit creates a new claim on behalf of a lecturer. Name, email and
// hourly rate are copied from the lecturer's user record so later HR
// edits never rewrite this claim. Attachment metadata must already
// have passed the upload guard; Submit persists the claim and its
// attachments atomically.
func (e *Engine) Submit(ctx context.Context, lecturer *model.User, hours int, notes string, attachments []model.Attachment) (*model.Claim, error) {
	if lecturer.Role != model.RoleLecturer {
		return nil, &ValidationError{Field: "role", Reason: "only lecturers may submit claims"}
	}
	if hours < MinHours || hours > MaxHours {
		return nil, &ValidationError{Field: "hours_worked",
			Reason: fmt.Sprintf("must be between %d and %d", MinHours, MaxHours)}
	}
	if lecturer.HourlyRateCents < MinRateCents || lecturer.HourlyRateCents > MaxRateCents {
		return nil, &ValidationError{Field: "hourly_rate",
			Reason: fmt.Sprintf("must be between %d and %d cents", MinRateCents, MaxRateCents)}
	}
	if len(notes) > MaxNotesLen {
		return nil, &ValidationError{Field: "notes",
			Reason: fmt.Sprintf("cannot be longer than %d characters", MaxNotesLen)}
	}
	c := &model.Claim{
		ID:            uuid.New(),
		LecturerName:  lecturer.Name,
		LecturerEmail: strings.ToLower(strings.TrimSpace(lecturer.Email)),
		HoursWorked:   hours,
		RateCents:     lecturer.HourlyRateCents,
		Notes:         notes,
		Status:        model.StatusPending,
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		Attachments:   attachments,
	}
	if err := e.claims.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Transition applies one action of the state machine to a claim. The
// (role, action) pair is resolved against the transition table before
// any I/O; an unknown pair fails immediately. The write itself is
// conditional on the claim still being in the expected status, so of
// two concurrent attempts on the same claim exactly one succeeds and
// the other observes ErrInvalidTransition. On success the decision is
// appended to the actor's activity log.
func (e *Engine) Transition(ctx context.Context, actor Actor, action Action, claimID uuid.UUID) (*model.Claim, error) {
	rule, ok := transitions[actor.Role][action]
	if !ok {
		return nil, ErrInvalidTransition
	}
	claim, err := e.claims.UpdateStatus(ctx, claimID, rule.from, rule.to)
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	if e.activity != nil {
		entry := model.ActivityEntry{
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Message:   fmt.Sprintf("%s claim %s (%s -> %s)", action, claimID, rule.from, rule.to),
		}
		if err := e.activity.Append(ctx, entry); err != nil {
			log.Printf("activity: append failed for actor %s: %v", actor.ID, err)
		}
	}
	return claim, nil
}

// PendingQueue returns claims awaiting coordinator verification,
// newest-first.
func (e *Engine) PendingQueue(ctx context.Context) ([]model.Claim, error) {
	return e.claims.ListByStatus(ctx, model.StatusPending)
}

// VerifiedQueue returns claims awaiting manager approval, newest-first.
func (e *Engine) VerifiedQueue(ctx context.Context) ([]model.Claim, error) {
	return e.claims.ListByStatus(ctx, model.StatusVerified)
}

// History returns claims matching the filter, newest-first.
func (e *Engine) History(ctx context.Context, f repository.HistoryFilter) ([]model.Claim, error) {
	return e.claims.History(ctx, f)
}

// LecturerClaims returns every claim submitted under the given
// lecturer email, newest-first.
func (e *Engine) LecturerClaims(ctx context.Context, email string) ([]model.Claim, error) {
	return e.claims.ListByLecturer(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Report returns the HR payment rows: approved claims grouped per
// lecturer with summed hours and amounts, largest amount first.
func (e *Engine) Report(ctx context.Context) ([]model.ReportRow, error) {
	return e.claims.ReportRows(ctx)
}

// Claim returns one claim by id.
func (e *Engine) Claim(ctx context.Context, id uuid.UUID) (*model.Claim, error) {
	return e.claims.GetByID(ctx, id)
}

// RecentActivity returns the actor's latest journaled decisions.
func (e *Engine) RecentActivity(ctx context.Context, actorID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	if e.activity == nil {
		return []model.ActivityEntry{}, nil
	}
	return e.activity.ListByActor(ctx, actorID, limit)
}
