package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivityEntry is one line of the append-only per-actor activity
// log. Dashboards show an actor their own recent decisions from this
// table instead of keeping transient per-session strings.
//
// Fields:
//  ID        – primary key identifier.
//  ActorID   – user who performed the action.
//  ActorRole – role the actor held at the time.
//  Message   – human-readable description of the action.
//  CreatedAt – when the action happened.
type ActivityEntry struct {
	ID        uint64    // activity_log.id
	ActorID   uuid.UUID // activity_log.actor_id
	ActorRole Role      // activity_log.actor_role
	Message   string    // activity_log.message
	CreatedAt time.Time // activity_log.created_at
}
