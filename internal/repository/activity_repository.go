package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/lecturer-claims/internal/model"
)

// ActivityRepo provides access to the append-only `activity_log`
// table. Entries are never updated or deleted; dashboards read an
// actor's most recent entries to show what they last did.
type ActivityRepo struct {
	db *sql.DB
}

// NewActivityRepo returns a new ActivityRepo bound to the given database.
func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// Append records one action performed by an actor.
func (r *ActivityRepo) Append(ctx context.Context, e model.ActivityEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_log (actor_id, actor_role, message) VALUES (?,?,?)`,
		e.ActorID.String(), string(e.ActorRole), e.Message)
	return err
}

// ListByActor returns the actor's most recent entries, newest-first,
// capped at limit.
func (r *ActivityRepo) ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor_id, actor_role, message, created_at
		 FROM activity_log WHERE actor_id=? ORDER BY id DESC LIMIT ?`,
		actorID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.ActivityEntry, 0, limit)
	for rows.Next() {
		var e model.ActivityEntry
		var idStr, roleStr string
		if err := rows.Scan(&e.ID, &idStr, &roleStr, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		e.ActorID = id
		e.ActorRole = model.Role(roleStr)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
