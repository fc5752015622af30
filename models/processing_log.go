package models

import "time"

// Processing log outcomes
const (
	OutcomeSuccess    = "success"
	OutcomeFailed     = "failed"
	OutcomeSuppressed = "suppressed"
)

// Event kinds written by the notifier (the dispatcher logs the action type)
const (
	EventArrivalNotified  = "arrival_notified"
	EventReminderFired    = "reminder_fired"
	EventDigestFired      = "digest_fired"
	EventNotifyDelivered  = "notify_delivered"
	EventNotifySuppressed = "notify_suppressed"
)

// ProcessingLogEntry is one append-only record of an action execution or a
// notification event. Entries are never updated after insert; the stats and
// search collaborators consume them as a stream.
type ProcessingLogEntry struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EmailID            uint      `gorm:"index" json:"email_id"` // 0 for aggregate events like digests
	RuleID             *uint     `gorm:"index" json:"rule_id,omitempty"`
	NotificationRuleID *uint     `gorm:"index" json:"notification_rule_id,omitempty"`
	Kind               string    `gorm:"not null;index" json:"kind"`
	Outcome            string    `gorm:"not null;index" json:"outcome"`
	Note               string    `json:"note,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// TableName specifies the table name for ProcessingLogEntry
func (ProcessingLogEntry) TableName() string {
	return "processing_log"
}

// ActionMarker records that a non-idempotent action (forward, meeting
// registration) or a once-only notification already ran for an email, so a
// repeated dispatch skips it instead of re-sending.
type ActionMarker struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EmailID   uint      `gorm:"not null;uniqueIndex:idx_marker_dedup" json:"email_id"`
	OwnerID   uint      `gorm:"not null;uniqueIndex:idx_marker_dedup" json:"owner_id"` // rule or notification rule ID
	Kind      string    `gorm:"not null;uniqueIndex:idx_marker_dedup" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ActionMarker
func (ActionMarker) TableName() string {
	return "action_markers"
}
