package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/repository"
)

// fakeClaimStore is an in-memory ClaimStore with the same atomicity
// guarantee as the SQL implementation: UpdateStatus checks and writes
// under one lock, so concurrent transitions on one claim cannot both
// succeed.
type fakeClaimStore struct {
	mu     sync.Mutex
	claims map[uuid.UUID]*model.Claim
}

func newFakeClaimStore() *fakeClaimStore {
	return &fakeClaimStore{claims: make(map[uuid.UUID]*model.Claim)}
}

func (s *fakeClaimStore) Create(_ context.Context, c *model.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.claims[c.ID] = &cp
	return nil
}

func (s *fakeClaimStore) GetByID(_ context.Context, id uuid.UUID) (*model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *fakeClaimStore) GetAll(_ context.Context) ([]model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, *c)
	}
	return out, nil
}

func (s *fakeClaimStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.ClaimStatus) (*model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c.Status != from {
		return nil, repository.ErrStaleStatus
	}
	c.Status = to
	c.Version++
	cp := *c
	return &cp, nil
}

func (s *fakeClaimStore) ListByStatus(_ context.Context, status model.ClaimStatus) ([]model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Claim
	for _, c := range s.claims {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeClaimStore) ListByLecturer(_ context.Context, email string) ([]model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Claim
	for _, c := range s.claims {
		if c.LecturerEmail == email {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeClaimStore) History(_ context.Context, f repository.HistoryFilter) ([]model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Claim
	for _, c := range s.claims {
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		day := c.CreatedAt.Truncate(24 * time.Hour)
		if f.From != nil && day.Before(f.From.Truncate(24*time.Hour)) {
			continue
		}
		if f.To != nil && day.After(f.To.Truncate(24*time.Hour)) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *fakeClaimStore) ReportRows(_ context.Context) ([]model.ReportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byEmail := map[string]*model.ReportRow{}
	var order []string
	for _, c := range s.claims {
		if c.Status != model.StatusApproved {
			continue
		}
		r, ok := byEmail[c.LecturerEmail]
		if !ok {
			r = &model.ReportRow{LecturerName: c.LecturerName, LecturerEmail: c.LecturerEmail}
			byEmail[c.LecturerEmail] = r
			order = append(order, c.LecturerEmail)
		}
		r.TotalHours += int64(c.HoursWorked)
		r.TotalAmountCents += c.TotalCents()
	}
	out := make([]model.ReportRow, 0, len(order))
	for _, e := range order {
		out = append(out, *byEmail[e])
	}
	// largest total first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].TotalAmountCents > out[i].TotalAmountCents {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

type fakeActivityStore struct {
	mu      sync.Mutex
	entries []model.ActivityEntry
}

func (s *fakeActivityStore) Append(_ context.Context, e model.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uint64(len(s.entries) + 1)
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeActivityStore) ListByActor(_ context.Context, actorID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ActivityEntry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].ActorID == actorID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func testLecturer() *model.User {
	return &model.User{
		ID:              uuid.New(),
		Name:            "Dana Levi",
		Email:           "dana@example.edu",
		Role:            model.RoleLecturer,
		HourlyRateCents: 35_000,
		IsApproved:      true,
	}
}

func newTestEngine() (*Engine, *fakeClaimStore, *fakeActivityStore) {
	claims := newFakeClaimStore()
	activity := &fakeActivityStore{}
	return NewEngine(claims, activity), claims, activity
}

func TestSubmitCreatesPendingClaim(t *testing.T) {
	engine, _, _ := newTestEngine()

	claim, err := engine.Submit(context.Background(), testLecturer(), 10, "October hours", nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, claim.Status)
	assert.Equal(t, uint32(1), claim.Version)
	assert.Equal(t, int64(350_000), claim.TotalCents())
	assert.Equal(t, "dana@example.edu", claim.LecturerEmail)
	assert.False(t, claim.CreatedAt.IsZero())
}

func TestSubmitValidation(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	cases := []struct {
		name  string
		mut   func(u *model.User) (hours int, notes string)
		field string
	}{
		{"zero hours", func(u *model.User) (int, string) { return 0, "" }, "hours_worked"},
		{"too many hours", func(u *model.User) (int, string) { return 181, "" }, "hours_worked"},
		{"rate below floor", func(u *model.User) (int, string) { u.HourlyRateCents = 4_999; return 10, "" }, "hourly_rate"},
		{"rate above ceiling", func(u *model.User) (int, string) { u.HourlyRateCents = 200_001; return 10, "" }, "hourly_rate"},
		{"notes too long", func(u *model.User) (int, string) { return 10, strings.Repeat("x", 251) }, "notes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := testLecturer()
			hours, notes := tc.mut(u)
			_, err := engine.Submit(ctx, u, hours, notes, nil)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	// Boundary values pass.
	u := testLecturer()
	_, err := engine.Submit(ctx, u, 1, strings.Repeat("x", 250), nil)
	assert.NoError(t, err)
	_, err = engine.Submit(ctx, u, 180, "", nil)
	assert.NoError(t, err)
}

func TestSubmitRejectsNonLecturer(t *testing.T) {
	engine, _, _ := newTestEngine()
	u := testLecturer()
	u.Role = model.RoleManager

	_, err := engine.Submit(context.Background(), u, 10, "", nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "role", ve.Field)
}

func TestTransitionTable(t *testing.T) {
	type step struct {
		role   model.Role
		action Action
	}
	cases := []struct {
		name    string
		status  model.ClaimStatus
		step    step
		want    model.ClaimStatus
		wantErr bool
	}{
		{"coordinator verifies pending", model.StatusPending, step{model.RoleCoordinator, ActionVerify}, model.StatusVerified, false},
		{"coordinator rejects pending", model.StatusPending, step{model.RoleCoordinator, ActionReject}, model.StatusRejected, false},
		{"manager approves verified", model.StatusVerified, step{model.RoleManager, ActionApprove}, model.StatusApproved, false},
		{"manager rejects verified", model.StatusVerified, step{model.RoleManager, ActionReject}, model.StatusRejected, false},
		{"coordinator cannot approve", model.StatusVerified, step{model.RoleCoordinator, ActionApprove}, "", true},
		{"coordinator cannot verify twice", model.StatusVerified, step{model.RoleCoordinator, ActionVerify}, "", true},
		{"manager cannot approve pending", model.StatusPending, step{model.RoleManager, ActionApprove}, "", true},
		{"manager cannot verify", model.StatusPending, step{model.RoleManager, ActionVerify}, "", true},
		{"lecturer cannot verify", model.StatusPending, step{model.RoleLecturer, ActionVerify}, "", true},
		{"hr cannot approve", model.StatusVerified, step{model.RoleHR, ActionApprove}, "", true},
		{"approved is terminal", model.StatusApproved, step{model.RoleManager, ActionReject}, "", true},
		{"rejected is terminal", model.StatusRejected, step{model.RoleCoordinator, ActionVerify}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, store, _ := newTestEngine()
			ctx := context.Background()

			claim, err := engine.Submit(ctx, testLecturer(), 10, "", nil)
			require.NoError(t, err)
			if tc.status != model.StatusPending {
				store.mu.Lock()
				store.claims[claim.ID].Status = tc.status
				store.mu.Unlock()
			}

			actor := Actor{ID: uuid.New(), Role: tc.step.role}
			got, err := engine.Transition(ctx, actor, tc.step.action, claim.ID)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				fresh, gerr := engine.Claim(ctx, claim.ID)
				require.NoError(t, gerr)
				assert.Equal(t, tc.status, fresh.Status, "failed transition must not touch the claim")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)
			assert.Equal(t, uint32(2), got.Version)
		})
	}
}

func TestTransitionUnknownClaim(t *testing.T) {
	engine, _, _ := newTestEngine()
	actor := Actor{ID: uuid.New(), Role: model.RoleCoordinator}

	_, err := engine.Transition(context.Background(), actor, ActionVerify, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConcurrentDecisionsSingleWinner(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	claim, err := engine.Submit(ctx, testLecturer(), 10, "", nil)
	require.NoError(t, err)

	coordinator := Actor{ID: uuid.New(), Role: model.RoleCoordinator}
	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action := ActionVerify
			if i%2 == 1 {
				action = ActionReject
			}
			_, results[i] = engine.Transition(ctx, coordinator, action, claim.ID)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent decision may land")

	fresh, err := engine.Claim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), fresh.Version)
	assert.Contains(t, []model.ClaimStatus{model.StatusVerified, model.StatusRejected}, fresh.Status)
}

func TestFullPipelineToReport(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	lect := testLecturer()
	claim, err := engine.Submit(ctx, lect, 10, "guest lectures", nil)
	require.NoError(t, err)

	coordinator := Actor{ID: uuid.New(), Role: model.RoleCoordinator}
	manager := Actor{ID: uuid.New(), Role: model.RoleManager}

	verified, err := engine.Transition(ctx, coordinator, ActionVerify, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, verified.Status)

	approved, err := engine.Transition(ctx, manager, ActionApprove, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	assert.Equal(t, uint32(3), approved.Version)

	rows, err := engine.Report(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, lect.Email, rows[0].LecturerEmail)
	assert.Equal(t, int64(10), rows[0].TotalHours)
	assert.Equal(t, int64(350_000), rows[0].TotalAmountCents)

	// Both decisions were journaled for their actors.
	recent, err := engine.RecentActivity(ctx, coordinator.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Contains(t, recent[0].Message, "verify claim")
}

func TestReportAggregatesPerLecturer(t *testing.T) {
	engine, _, _ := newTestEngine()
	ctx := context.Background()

	coordinator := Actor{ID: uuid.New(), Role: model.RoleCoordinator}
	manager := Actor{ID: uuid.New(), Role: model.RoleManager}

	a := testLecturer()
	b := testLecturer()
	b.Email = "noa@example.edu"
	b.Name = "Noa Peretz"
	b.HourlyRateCents = 50_000

	approve := func(u *model.User, hours int) {
		c, err := engine.Submit(ctx, u, hours, "", nil)
		require.NoError(t, err)
		_, err = engine.Transition(ctx, coordinator, ActionVerify, c.ID)
		require.NoError(t, err)
		_, err = engine.Transition(ctx, manager, ActionApprove, c.ID)
		require.NoError(t, err)
	}
	approve(a, 10)
	approve(a, 5)
	approve(b, 20)

	// A rejected claim never reaches the report.
	rej, err := engine.Submit(ctx, a, 7, "", nil)
	require.NoError(t, err)
	_, err = engine.Transition(ctx, coordinator, ActionReject, rej.ID)
	require.NoError(t, err)

	rows, err := engine.Report(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Largest summed amount first: b has 20h * 50000 = 1,000,000.
	assert.Equal(t, "noa@example.edu", rows[0].LecturerEmail)
	assert.Equal(t, int64(1_000_000), rows[0].TotalAmountCents)
	assert.Equal(t, "dana@example.edu", rows[1].LecturerEmail)
	assert.Equal(t, int64(15), rows[1].TotalHours)
	assert.Equal(t, int64(525_000), rows[1].TotalAmountCents)
}

func TestHistoryFilters(t *testing.T) {
	engine, store, _ := newTestEngine()
	ctx := context.Background()

	old, err := engine.Submit(ctx, testLecturer(), 10, "", nil)
	require.NoError(t, err)
	recent, err := engine.Submit(ctx, testLecturer(), 12, "", nil)
	require.NoError(t, err)

	store.mu.Lock()
	store.claims[old.ID].CreatedAt = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	store.claims[recent.ID].CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.mu.Unlock()

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	got, err := engine.History(ctx, repository.HistoryFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, recent.ID, got[0].ID)

	st := model.StatusPending
	got, err = engine.History(ctx, repository.HistoryFilter{Status: &st})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	st = model.StatusApproved
	got, err = engine.History(ctx, repository.HistoryFilter{Status: &st})
	require.NoError(t, err)
	assert.Empty(t, got)

	// Inclusive day bounds.
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err = engine.History(ctx, repository.HistoryFilter{From: &day, To: &day})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, recent.ID, got[0].ID)
}
