package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/repository"
)

// fakeUserStore mirrors the SQL store's behavior: emails are unique
// across all roles and lookups are case-insensitive because writes
// normalize to lower case.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*model.User)}
}

func (s *fakeUserStore) GetAll(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) GetByEmailAndRole(_ context.Context, email string, role model.Role) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email && u.Role == role {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) Upsert(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.users {
		if existing.Email == u.Email && id != u.ID {
			return repository.ErrEmailExists
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) SaveAll(_ context.Context, users []model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[uuid.UUID]*model.User, len(users))
	for i := range users {
		cp := users[i]
		s.users[cp.ID] = &cp
	}
	return nil
}

// low cost keeps the bcrypt work factor out of test runtime
const testBcryptCost = 4

func newTestDirectory() (*Directory, *fakeUserStore) {
	store := newFakeUserStore()
	return NewDirectory(store, testBcryptCost), store
}

func TestRegisterCreatesUnapprovedLecturer(t *testing.T) {
	dir, _ := newTestDirectory()

	u, err := dir.Register(context.Background(), "Dana Levi", "Dana@Example.EDU", "s3cret!")
	require.NoError(t, err)

	assert.Equal(t, model.RoleLecturer, u.Role)
	assert.False(t, u.IsApproved)
	assert.Equal(t, "dana@example.edu", u.Email, "email is stored lower-cased")
	assert.Equal(t, int64(DefaultRateCents), u.HourlyRateCents)
	assert.NotEqual(t, "s3cret!", u.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	dir, _ := newTestDirectory()
	ctx := context.Background()

	cases := []struct {
		name                  string
		userName, email, pass string
		field                 string
	}{
		{"empty name", "", "a@b.edu", "secret1", "name"},
		{"name too long", strings.Repeat("x", 81), "a@b.edu", "secret1", "name"},
		{"bad email", "Dana", "not-an-email", "secret1", "email"},
		{"short password", "Dana", "a@b.edu", "12345", "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dir.Register(ctx, tc.userName, tc.email, tc.pass)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	dir, store := newTestDirectory()
	ctx := context.Background()

	_, err := dir.Register(ctx, "Dana", "dana@example.edu", "secret1")
	require.NoError(t, err)

	// Same email, different case, still refused; nothing was created.
	_, err = dir.Register(ctx, "Other", "DANA@example.edu", "secret2")
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAuthenticateApprovalGate(t *testing.T) {
	dir, _ := newTestDirectory()
	ctx := context.Background()

	u, err := dir.Register(ctx, "Dana", "dana@example.edu", "secret1")
	require.NoError(t, err)

	// Correct credentials, but the account is not approved yet. This
	// must be distinguishable from a credential failure.
	_, err = dir.Authenticate(ctx, "dana@example.edu", "secret1", model.RoleLecturer)
	assert.ErrorIs(t, err, ErrNotApproved)

	// A wrong password on the same unapproved account reports bad
	// credentials, not the approval state.
	_, err = dir.Authenticate(ctx, "dana@example.edu", "wrong", model.RoleLecturer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = dir.Approve(ctx, u.ID)
	require.NoError(t, err)

	got, err := dir.Authenticate(ctx, "dana@example.edu", "secret1", model.RoleLecturer)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestAuthenticateUnknownAndRoleMismatch(t *testing.T) {
	dir, _ := newTestDirectory()
	ctx := context.Background()

	_, err := dir.Authenticate(ctx, "ghost@example.edu", "whatever", model.RoleLecturer)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := dir.Register(ctx, "Dana", "dana@example.edu", "secret1")
	require.NoError(t, err)
	_, err = dir.Approve(ctx, u.ID)
	require.NoError(t, err)

	// Right credentials under the wrong role behave like an unknown
	// account.
	_, err = dir.Authenticate(ctx, "dana@example.edu", "secret1", model.RoleManager)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestApproveIsIdempotent(t *testing.T) {
	dir, _ := newTestDirectory()
	ctx := context.Background()

	u, err := dir.Register(ctx, "Dana", "dana@example.edu", "secret1")
	require.NoError(t, err)

	first, err := dir.Approve(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, first.IsApproved)

	second, err := dir.Approve(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, second.IsApproved)

	_, err = dir.Approve(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateLecturerIsApprovedWithRate(t *testing.T) {
	dir, _ := newTestDirectory()
	ctx := context.Background()

	u, err := dir.CreateLecturer(ctx, "Noa Peretz", "noa@example.edu", "secret1", 50_000)
	require.NoError(t, err)
	assert.True(t, u.IsApproved)
	assert.Equal(t, int64(50_000), u.HourlyRateCents)

	got, err := dir.Authenticate(ctx, "noa@example.edu", "secret1", model.RoleLecturer)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = dir.CreateLecturer(ctx, "Cheap", "cheap@example.edu", "secret1", 4_999)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "hourly_rate", ve.Field)
}

func TestUpdateUserKeepsPasswordAndApproval(t *testing.T) {
	dir, store := newTestDirectory()
	ctx := context.Background()

	u, err := dir.CreateLecturer(ctx, "Noa", "noa@example.edu", "secret1", 50_000)
	require.NoError(t, err)
	originalHash := u.PasswordHash

	updated, err := dir.UpdateUser(ctx, u.ID, "Noa Peretz", "noa.p@example.edu", model.RoleLecturer, 60_000)
	require.NoError(t, err)
	assert.Equal(t, "noa.p@example.edu", updated.Email)
	assert.Equal(t, int64(60_000), updated.HourlyRateCents)
	assert.True(t, updated.IsApproved)

	stored, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, originalHash, stored.PasswordHash)
}

func TestSeedDefaults(t *testing.T) {
	dir, store := newTestDirectory()
	ctx := context.Background()

	require.NoError(t, dir.SeedDefaults(ctx, "bootstrap-pass"))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	roles := map[model.Role]bool{}
	for _, u := range all {
		roles[u.Role] = true
		assert.True(t, u.IsApproved)
	}
	assert.True(t, roles[model.RoleHR])
	assert.True(t, roles[model.RoleCoordinator])
	assert.True(t, roles[model.RoleManager])

	got, err := dir.Authenticate(ctx, "hr@example.edu", "bootstrap-pass", model.RoleHR)
	require.NoError(t, err)
	assert.Equal(t, model.RoleHR, got.Role)

	// A second call on a populated directory must not wipe anything.
	require.NoError(t, dir.SeedDefaults(ctx, "other-pass"))
	again, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 3)
	_, err = dir.Authenticate(ctx, "hr@example.edu", "bootstrap-pass", model.RoleHR)
	assert.NoError(t, err)
}
