package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/lecturer-claims/internal/model"
)

// UserRepo provides data access to the `users` table. Emails are
// normalized to lower case before every read or write so that the
// unique index enforces case-insensitive uniqueness across all roles.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id, name, email, password_hash, role, hourly_rate_cents, is_approved, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var idStr, roleStr string
	if err := row.Scan(&idStr, &u.Name, &u.Email, &u.PasswordHash, &roleStr,
		&u.HourlyRateCents, &u.IsApproved, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	u.ID = id
	u.Role = model.Role(roleStr)
	return &u, nil
}

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062 on a unique index).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// GetAll returns a snapshot of every user ordered by creation time.
// The returned slice does not alias any stored state.
func (r *UserRepo) GetAll(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at, email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID fetches a user by id. Returns ErrNotFound when no row matches.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id.String()))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email regardless of role.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByEmailAndRole fetches a user by normalized email and role. Login
// asks for both so that a matching email under a different role is
// indistinguishable from an unknown account.
func (r *UserRepo) GetByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND role=? LIMIT 1", email, string(role)))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// Upsert inserts the user when its id is unseen and replaces the row
// with that id otherwise. The write is atomic per id: it either fully
// succeeds or leaves the collection untouched. A unique-email
// violation surfaces as ErrEmailExists.
func (r *UserRepo) Upsert(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=? LIMIT 1", u.ID.String()).Scan(&exists)
	switch err {
	case nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET name=?, email=?, password_hash=?, role=?, hourly_rate_cents=?, is_approved=? WHERE id=?`,
			u.Name, u.Email, u.PasswordHash, string(u.Role), u.HourlyRateCents, u.IsApproved, u.ID.String())
	case sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email, password_hash, role, hourly_rate_cents, is_approved) VALUES (?,?,?,?,?,?,?)`,
			u.ID.String(), u.Name, u.Email, u.PasswordHash, string(u.Role), u.HourlyRateCents, u.IsApproved)
	default:
		return err
	}
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SaveAll replaces the entire users collection with the given
// sequence inside one transaction.
//
// This is a whole-collection write: any concurrent per-id update made
// between the caller's read and this call is lost. It exists for
// startup seeding and bulk imports only; single-entity mutations must
// go through Upsert.
func (r *UserRepo) SaveAll(ctx context.Context, users []model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
		return err
	}
	if len(users) > 0 {
		query := `INSERT INTO users (id, name, email, password_hash, role, hourly_rate_cents, is_approved) VALUES `
		args := make([]any, 0, len(users)*7)
		for i, u := range users {
			if i > 0 {
				query += ","
			}
			query += "(?,?,?,?,?,?,?)"
			args = append(args, u.ID.String(), u.Name, strings.ToLower(strings.TrimSpace(u.Email)),
				u.PasswordHash, string(u.Role), u.HourlyRateCents, u.IsApproved)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isDuplicate(err) {
				return ErrEmailExists
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
