package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/lecturer-claims/internal/model"
)

// ClaimRepo provides data access to the `claims` and `attachments`
// tables. Status transitions go through UpdateStatus, which compares
// the current status in the same statement that writes the new one;
// two concurrent transitions on the same claim can therefore never
// both succeed. All timestamps are stored in UTC.
type ClaimRepo struct {
	db *sql.DB
}

// NewClaimRepo returns a new ClaimRepo bound to the given database.
func NewClaimRepo(db *sql.DB) *ClaimRepo { return &ClaimRepo{db: db} }

const claimColumns = "id, lecturer_name, lecturer_email, hours_worked, rate_cents, notes, status, version, created_at"

func scanClaim(row interface{ Scan(...any) error }) (*model.Claim, error) {
	var c model.Claim
	var idStr, statusStr string
	var notes sql.NullString
	if err := row.Scan(&idStr, &c.LecturerName, &c.LecturerEmail, &c.HoursWorked,
		&c.RateCents, &notes, &statusStr, &c.Version, &c.CreatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	c.ID = id
	c.Status = model.ClaimStatus(statusStr)
	if notes.Valid {
		c.Notes = notes.String
	}
	c.Attachments = []model.Attachment{}
	return &c, nil
}

// Create inserts a claim together with its attachment metadata in a
// single transaction, so a claim is never visible without its full
// attachment set.
func (r *ClaimRepo) Create(ctx context.Context, c *model.Claim) error {
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
	_, err = tx.ExecContext(ctx,
		`INSERT INTO claims (id, lecturer_name, lecturer_email, hours_worked, rate_cents, notes, status, version, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID.String(), c.LecturerName, c.LecturerEmail, c.HoursWorked, c.RateCents,
		c.Notes, string(c.Status), c.Version, c.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	if len(c.Attachments) > 0 {
		query := `INSERT INTO attachments (claim_id, file_name, saved_as, size) VALUES `
		args := make([]any, 0, len(c.Attachments)*4)
		for i, a := range c.Attachments {
			if i > 0 {
				query += ","
			}
			query += "(?,?,?,?)"
			args = append(args, c.ID.String(), a.FileName, a.SavedAs, a.Size)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches one claim with its attachments. Returns ErrNotFound
// when no row matches.
func (r *ClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Claim, error) {
	c, err := scanClaim(r.db.QueryRowContext(ctx,
		"SELECT "+claimColumns+" FROM claims WHERE id=? LIMIT 1", id.String()))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, claim_id, file_name, saved_as, size FROM attachments WHERE claim_id=? ORDER BY id", id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.Attachment
		var claimIDStr string
		if err := rows.Scan(&a.ID, &claimIDStr, &a.FileName, &a.SavedAs, &a.Size); err != nil {
			return nil, err
		}
		a.ClaimID = id
		c.Attachments = append(c.Attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateStatus transitions one claim from an expected status to a new
// one. The expected status is part of the WHERE clause, so the write
// succeeds only when the caller's view of the claim is still current;
// the version column is bumped on every successful transition. When
// nothing was written, the claim is re-read to tell a missing claim
// (ErrNotFound) apart from a lost race (ErrStaleStatus). No other
// column is ever touched.
func (r *ClaimRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ClaimStatus) (*model.Claim, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE claims SET status=?, version=version+1 WHERE id=? AND status=?`,
		string(to), id.String(), string(from))
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err // ErrNotFound or storage fault
		}
		return nil, ErrStaleStatus
	}
	return r.GetByID(ctx, id)
}

// Upsert inserts the claim when its id is unseen and replaces the
// scalar columns of the row with that id otherwise. Attachment rows
// are written only on first insert; attachments are immutable and
// are never rewritten by an upsert. Part of the shared record-store
// contract; status transitions must use UpdateStatus instead.
func (r *ClaimRepo) Upsert(ctx context.Context, c *model.Claim) error {
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
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM claims WHERE id=? LIMIT 1", c.ID.String()).Scan(&exists)
	switch err {
	case nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE claims SET lecturer_name=?, lecturer_email=?, hours_worked=?, rate_cents=?, notes=?, status=?, version=version+1 WHERE id=?`,
			c.LecturerName, c.LecturerEmail, c.HoursWorked, c.RateCents, c.Notes, string(c.Status), c.ID.String())
		if err != nil {
			return err
		}
	case sql.ErrNoRows:
		if err := tx.Rollback(); err != nil {
			return err
		}
		committed = true // nothing to roll back; Create runs its own tx
		return r.Create(ctx, c)
	default:
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SaveAll replaces the entire claims collection (and all attachment
// metadata) inside one transaction.
//
// This is a whole-collection write and is unsafe as a mutation
// primitive under concurrency: an update committed between the
// caller's read and this call is silently lost. It exists only to
// satisfy the shared record-store contract for bulk restores; nothing
// in the request path calls it.
func (r *ClaimRepo) SaveAll(ctx context.Context, claims []model.Claim) error {
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
	if _, err := tx.ExecContext(ctx, "DELETE FROM attachments"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM claims"); err != nil {
		return err
	}
	for i := range claims {
		c := &claims[i]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO claims (id, lecturer_name, lecturer_email, hours_worked, rate_cents, notes, status, version, created_at)
			 VALUES (?,?,?,?,?,?,?,?,?)`,
			c.ID.String(), c.LecturerName, c.LecturerEmail, c.HoursWorked, c.RateCents,
			c.Notes, string(c.Status), c.Version, c.CreatedAt.UTC().Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
		for _, a := range c.Attachments {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO attachments (claim_id, file_name, saved_as, size) VALUES (?,?,?,?)`,
				c.ID.String(), a.FileName, a.SavedAs, a.Size); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetAll returns every claim newest-first with attachments populated.
func (r *ClaimRepo) GetAll(ctx context.Context) ([]model.Claim, error) {
	return r.queryClaims(ctx, "SELECT "+claimColumns+" FROM claims ORDER BY created_at DESC")
}

// ListByStatus returns all claims in the given status, newest-first.
func (r *ClaimRepo) ListByStatus(ctx context.Context, status model.ClaimStatus) ([]model.Claim, error) {
	return r.queryClaims(ctx,
		"SELECT "+claimColumns+" FROM claims WHERE status=? ORDER BY created_at DESC", string(status))
}

// ListByLecturer returns all claims submitted under the given
// lecturer email, newest-first.
func (r *ClaimRepo) ListByLecturer(ctx context.Context, email string) ([]model.Claim, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.queryClaims(ctx,
		"SELECT "+claimColumns+" FROM claims WHERE lecturer_email=? ORDER BY created_at DESC", email)
}

// HistoryFilter narrows a claim history query. Nil fields are
// ignored. From and To are inclusive calendar dates compared against
// the claim's creation date.
type HistoryFilter struct {
	Status *model.ClaimStatus
	From   *time.Time
	To     *time.Time
}

// History returns claims matching the filter, newest-first.
func (r *ClaimRepo) History(ctx context.Context, f HistoryFilter) ([]model.Claim, error) {
	query := "SELECT " + claimColumns + " FROM claims"
	var conds []string
	var args []any
	if f.Status != nil {
		conds = append(conds, "status=?")
		args = append(args, string(*f.Status))
	}
	if f.From != nil {
		conds = append(conds, "DATE(created_at) >= ?")
		args = append(args, f.From.UTC().Format("2006-01-02"))
	}
	if f.To != nil {
		conds = append(conds, "DATE(created_at) <= ?")
		args = append(args, f.To.UTC().Format("2006-01-02"))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	return r.queryClaims(ctx, query, args...)
}

// ReportRows aggregates approved claims per lecturer: summed hours
// and summed amount, ordered by descending amount. Totals are
// computed inside the query from hours and rate; no stored total is
// ever read.
func (r *ClaimRepo) ReportRows(ctx context.Context) ([]model.ReportRow, error) {
	const q = `SELECT lecturer_name, lecturer_email,
					  SUM(hours_worked), SUM(hours_worked * rate_cents)
			   FROM claims
			   WHERE status=?
			   GROUP BY lecturer_name, lecturer_email
			   ORDER BY SUM(hours_worked * rate_cents) DESC`
	rows, err := r.db.QueryContext(ctx, q, string(model.StatusApproved))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ReportRow, 0)
	for rows.Next() {
		var row model.ReportRow
		if err := rows.Scan(&row.LecturerName, &row.LecturerEmail, &row.TotalHours, &row.TotalAmountCents); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// queryClaims runs a claim query and populates attachments for the
// whole result set with a single IN query.
func (r *ClaimRepo) queryClaims(ctx context.Context, query string, args ...any) ([]model.Claim, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	claims := make([]model.Claim, 0)
	index := make(map[string]int)
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		index[c.ID.String()] = len(claims)
		claims = append(claims, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return claims, nil
	}
	ids := make([]any, 0, len(claims))
	placeholders := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID.String())
		placeholders = append(placeholders, "?")
	}
	attQ := `SELECT id, claim_id, file_name, saved_as, size
			 FROM attachments
			 WHERE claim_id IN (` + strings.Join(placeholders, ",") + `)
			 ORDER BY claim_id, id`
	arows, err := r.db.QueryContext(ctx, attQ, ids...)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var a model.Attachment
		var claimIDStr string
		if err := arows.Scan(&a.ID, &claimIDStr, &a.FileName, &a.SavedAs, &a.Size); err != nil {
			return nil, err
		}
		idx, ok := index[claimIDStr]
		if !ok {
			continue
		}
		a.ClaimID = claims[idx].ID
		claims[idx].Attachments = append(claims[idx].Attachments, a)
	}
	if err := arows.Err(); err != nil {
		return nil, err
	}
	return claims, nil
}
