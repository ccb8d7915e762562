package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/lecturer-claims/internal/model"
	"github.com/iliyamo/lecturer-claims/internal/repository"
	"github.com/iliyamo/lecturer-claims/internal/utils"
)

// UserStore is the slice of the user record store the directory
// needs. *repository.UserRepo satisfies it; tests use in-memory
// fakes.
type UserStore interface {
	GetAll(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error)
	Upsert(ctx context.Context, u *model.User) error
	SaveAll(ctx context.Context, users []model.User) error
}

// DefaultRateCents is the hourly rate given to self-registered
// lecturers until HR sets a real one.
const DefaultRateCents = 35_000

const minPasswordLen = 6

// Directory handles registration, credential verification and the HR
// approval gate for lecturer accounts.
type Directory struct {
	users      UserStore
	bcryptCost int
}

// NewDirectory constructs a Directory using the given bcrypt cost for
// password hashing.
func NewDirectory(users UserStore, bcryptCost int) *Directory {
	if users == nil {
		panic("nil user store passed to NewDirectory")
	}
	return &Directory{users: users, bcryptCost: bcryptCost}
}

func validateAccountInput(name, email, password string) error {
	if strings.TrimSpace(name) == "" || len(name) > 80 {
		return &ValidationError{Field: "name", Reason: "must be 1 to 80 characters"}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if len(password) < minPasswordLen {
		return &ValidationError{Field: "password",
			Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	return nil
}

func (d *Directory) newLecturer(name, email, password string, rateCents int64, approved bool) (*model.User, error) {
	hash, err := utils.HashPassword(password, d.bcryptCost)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(name),
		Email:           strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:    hash,
		Role:            model.RoleLecturer,
		HourlyRateCents: rateCents,
		IsApproved:      approved,
	}, nil
}

// Register creates a lecturer account through self-service. The
// account is durable immediately but inert: IsApproved starts false
// and Authenticate refuses it until HR approves. A duplicate email
// under any role fails with repository.ErrEmailExists and creates
// nothing.
func (d *Directory) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	if err := validateAccountInput(name, email, password); err != nil {
		return nil, err
	}
	u, err := d.newLecturer(name, email, password, DefaultRateCents, false)
	if err != nil {
		return nil, err
	}
	if err := d.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateLecturer is the HR-side creation path: the account is
// approved immediately and carries the rate HR chose.
func (d *Directory) CreateLecturer(ctx context.Context, name, email, password string, rateCents int64) (*model.User, error) {
	if err := validateAccountInput(name, email, password); err != nil {
		return nil, err
	}
	if rateCents < MinRateCents || rateCents > MaxRateCents {
		return nil, &ValidationError{Field: "hourly_rate",
			Reason: fmt.Sprintf("must be between %d and %d cents", MinRateCents, MaxRateCents)}
	}
	u, err := d.newLecturer(name, email, password, rateCents, true)
	if err != nil {
		return nil, err
	}
	if err := d.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies email+role+password and then applies the
// approval gate. An unknown email/role pair and a wrong password both
// come back as ErrInvalidCredentials; an unapproved lecturer whose
// password verified comes back as ErrNotApproved, which callers must
// surface with its own message since the credentials were correct.
func (d *Directory) Authenticate(ctx context.Context, email, password string, role model.Role) (*model.User, error) {
	u, err := d.users.GetByEmailAndRole(ctx, email, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if u.Role == model.RoleLecturer && !u.IsApproved {
		return nil, ErrNotApproved
	}
	return u, nil
}

// Approve activates a lecturer account so it can log in. Approving an
// already-approved user is a no-op, not an error. Approval is never
// revoked.
func (d *Directory) Approve(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsApproved {
		return u, nil
	}
	u.IsApproved = true
	if err := d.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser applies an HR edit to name, email, role and rate. The
// password and approval flag are not touched here. Historical claims
// keep the identity they were submitted under.
func (d *Directory) UpdateUser(ctx context.Context, id uuid.UUID, name, email string, role model.Role, rateCents int64) (*model.User, error) {
	if strings.TrimSpace(name) == "" || len(name) > 80 {
		return nil, &ValidationError{Field: "name", Reason: "must be 1 to 80 characters"}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return nil, &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if !model.ValidRole(string(role)) {
		return nil, &ValidationError{Field: "role", Reason: "unknown role"}
	}
	if rateCents < MinRateCents || rateCents > MaxRateCents {
		return nil, &ValidationError{Field: "hourly_rate",
			Reason: fmt.Sprintf("must be between %d and %d cents", MinRateCents, MaxRateCents)}
	}
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(name)
	u.Email = strings.ToLower(strings.TrimSpace(email))
	u.Role = role
	u.HourlyRateCents = rateCents
	if err := d.users.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Users returns a snapshot of every account for the HR user list.
func (d *Directory) Users(ctx context.Context) ([]model.User, error) {
	return d.users.GetAll(ctx)
}

// User returns one account by id.
func (d *Directory) User(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return d.users.GetByID(ctx, id)
}

// SeedDefaults bulk-writes one HR, one coordinator and one manager
// account when the user collection is empty, so a fresh deployment
// has someone who can approve lecturers. This is the one sanctioned
// use of the whole-collection SaveAll write: it runs at startup
// before the server accepts requests.
func (d *Directory) SeedDefaults(ctx context.Context, password string) error {
	existing, err := d.users.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	hash, err := utils.HashPassword(password, d.bcryptCost)
	if err != nil {
		return err
	}
	seeds := []model.User{
		{ID: uuid.New(), Name: "HR Admin", Email: "hr@example.edu", PasswordHash: hash, Role: model.RoleHR, IsApproved: true},
		{ID: uuid.New(), Name: "Programme Coordinator", Email: "coordinator@example.edu", PasswordHash: hash, Role: model.RoleCoordinator, IsApproved: true},
		{ID: uuid.New(), Name: "Academic Manager", Email: "manager@example.edu", PasswordHash: hash, Role: model.RoleManager, IsApproved: true},
	}
	return d.users.SaveAll(ctx, seeds)
}
