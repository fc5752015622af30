package models

import (
	"time"

	"gorm.io/gorm"
)

// Sender categories classify the sender's organizational relationship
// to the recipient. Resolved upstream by the intake layer.
const (
	SenderInternalStaff  = "internal_staff"
	SenderInternalLeader = "internal_leader"
	SenderPeerStaff      = "peer_staff"
	SenderPeerLeader     = "peer_leader"
	SenderCrossOrgLeader = "cross_org_leader"
	SenderExternal       = "external"
	SenderAllowlist      = "allowlist"
)

// Priority levels for the email processing state
const (
	PriorityNone = "none"
	PriorityHigh = "high"
)

// Email represents an inbound email and its mutable processing state.
// Immutable metadata is written once by the intake layer; the processing
// state columns are mutated only by the dispatcher and the notifier.
type Email struct {
	gorm.Model
	MessageID       string    `gorm:"not null;uniqueIndex" json:"message_id"`
	From            string    `gorm:"not null;index" json:"from"`
	SenderCategory  string    `gorm:"not null;index" json:"sender_category"`
	Recipients      []string  `gorm:"serializer:json" json:"recipients"`
	Subject         string    `json:"subject"`
	Body            string    `gorm:"type:text" json:"body"`
	AttachmentCount int       `gorm:"default:0" json:"attachment_count"`
	Size            int64     `gorm:"default:0" json:"size"`
	ArrivedAt       time.Time `gorm:"not null;index" json:"arrived_at"`

	// Deadline flagging is an upstream classification input; the digest
	// surfaces it but nothing in the engine sets it.
	DeadlineAt *time.Time `json:"deadline_at,omitempty"`

	// Processing state
	IsRead            bool       `gorm:"default:false;index" json:"is_read"`
	Priority          string     `gorm:"default:'none'" json:"priority"`
	Folder            *string    `json:"folder,omitempty"`
	Archived          bool       `gorm:"default:false" json:"archived"`
	MeetingRegistered bool       `gorm:"default:false" json:"meeting_registered"`
	MeetingRef        *string    `json:"meeting_ref,omitempty"`
	RemindEvery       int        `gorm:"default:0" json:"remind_every"` // minutes, 0 = no per-email reminder
	LastNotifiedAt    *time.Time `json:"last_notified_at,omitempty"`
	NotifiedCount     int        `gorm:"default:0" json:"notified_count"`
}

// ProcessingState is the snapshot shape exposed to the UI/search collaborators.
type ProcessingState struct {
	EmailID           uint       `json:"email_id"`
	IsRead            bool       `json:"is_read"`
	Priority          string     `json:"priority"`
	Folder            *string    `json:"folder,omitempty"`
	Archived          bool       `json:"archived"`
	MeetingRegistered bool       `json:"meeting_registered"`
	LastNotifiedAt    *time.Time `json:"last_notified_at,omitempty"`
	NotifiedCount     int        `json:"notified_count"`
}

// State returns the processing state snapshot for this email.
func (e *Email) State() ProcessingState {
	return ProcessingState{
		EmailID:           e.ID,
		IsRead:            e.IsRead,
		Priority:          e.Priority,
		Folder:            e.Folder,
		Archived:          e.Archived,
		MeetingRegistered: e.MeetingRegistered,
		LastNotifiedAt:    e.LastNotifiedAt,
		NotifiedCount:     e.NotifiedCount,
	}
}
