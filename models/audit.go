package models

import "time"

// AuditLog is an append-only record of state-changing actions. Diff is
// an arbitrary key-value snapshot serialized to JSON at insert time.
type AuditLog struct {
	ID        string                 `json:"id" db:"id"`
	ActorID   string                 `json:"actor_id,omitempty" db:"actor_id"`
	ActorRole string                 `json:"actor_role,omitempty" db:"actor_role"`
	Entity    string                 `json:"entity" db:"entity"`
	EntityID  string                 `json:"entity_id" db:"entity_id"`
	Action    string                 `json:"action" db:"action"`
	Diff      map[string]interface{} `json:"diff,omitempty"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
