package audit

import (
	"context"
	"fmt"
)

// Record appends one lifecycle event to the audit log. ev.CreatedAt is the
// real wall-clock timestamp (gorm fills it in when left zero); ev.Tick and
// ev.TSC are the scheduler's own virtual counters at the moment the event
// occurred, recorded alongside wall-clock time so the log can be correlated
// with archived statistics snapshots.
func (l *Log) Record(ctx context.Context, ev Event) error {
	if err := l.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// RecentEvents returns the most recent events for treeName, newest first.
func (l *Log) RecentEvents(ctx context.Context, treeName string, limit int) ([]Event, error) {
	var events []Event
	err := l.db.WithContext(ctx).
		Where("tree_name = ?", treeName).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	return events, nil
}

// EventsByType returns the most recent events of a given type across all
// trees, newest first.
func (l *Log) EventsByType(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	var events []Event
	err := l.db.WithContext(ctx).
		Where("type = ?", eventType).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events by type: %w", err)
	}
	return events, nil
}

// CountByTree returns the total number of recorded events for treeName.
func (l *Log) CountByTree(ctx context.Context, treeName string) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&Event{}).
		Where("tree_name = ?", treeName).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return count, nil
}
