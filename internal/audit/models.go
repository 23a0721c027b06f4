// Package audit persists a log of scheduling tree lifecycle events —
// creation, node attach/detach, block/unblock transitions, rate-limit
// throttle events — to a relational database, for deployments that enable
// database-backed auditing. The in-memory scheduling tree itself is never
// persisted; this package only records what happened to it over time.
package audit

import "time"

// EventType names the kind of lifecycle event being recorded.
type EventType string

const (
	EventTreeCreated    EventType = "tree_created"
	EventNodeAdded      EventType = "node_added"
	EventNodeRemoved    EventType = "node_removed"
	EventNodeBlocked    EventType = "node_blocked"
	EventNodeUnblocked  EventType = "node_unblocked"
	EventNodeThrottled  EventType = "node_throttled"
)

// Event is one row of the audit log.
type Event struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	TreeName  string    `gorm:"column:tree_name;index;not null"`
	NodeName  string    `gorm:"column:node_name;index"`
	Type      EventType `gorm:"column:type;index;not null"`
	Detail    string    `gorm:"column:detail"`
	Tick      uint64    `gorm:"column:tick"`
	TSC       uint64    `gorm:"column:tsc"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

// TableName pins the table name so it survives struct renames.
func (Event) TableName() string { return "scheduler_audit_events" }
