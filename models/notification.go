package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification rule types
const (
	NotifyArrival  = "arrival"
	NotifyReminder = "reminder"
	NotifyDigest   = "digest"
)

// Delivery methods
const (
	MethodDesktop = "desktop"
	MethodSound   = "sound"
	MethodEmail   = "email"
)

// NotificationRule drives the notifier: arrival rules fire once per
// qualifying email right after dispatch, reminder rules re-fire on an
// interval while a matching email stays unread, digest rules fire once per
// working day at a configured time.
type NotificationRule struct {
	gorm.Model
	Name            string        `gorm:"not null" json:"name"`
	Type            string        `gorm:"not null;index" json:"type" validate:"required,oneof=arrival reminder digest"`
	Conditions      ConditionList `gorm:"serializer:json" json:"conditions"`
	Methods         []string      `gorm:"serializer:json" json:"methods" validate:"required,min=1,dive,oneof=desktop sound email"`
	IntervalMinutes int           `json:"interval_minutes,omitempty"` // reminder only
	DigestTime      string        `json:"digest_time,omitempty"`      // digest only, "HH:MM"
	Enabled         bool          `gorm:"default:true;index" json:"enabled"`
	Priority        string        `gorm:"default:'normal'" json:"priority"` // informational tag only

	// LastFiredAt tracks the last digest fire so a restarted scan never
	// double-fires within the same day.
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
}

// NotificationSettings is the single process-wide notification
// configuration row, loaded and updated explicitly rather than read as
// ambient state.
type NotificationSettings struct {
	gorm.Model
	Enabled           bool     `gorm:"default:true" json:"enabled"`
	DesktopEnabled    bool     `gorm:"default:true" json:"desktop_enabled"`
	SoundEnabled      bool     `gorm:"default:true" json:"sound_enabled"`
	EmailEnabled      bool     `gorm:"default:false" json:"email_enabled"`
	Volume            int      `gorm:"default:70" json:"volume" validate:"gte=0,lte=100"`
	QuietHoursEnabled bool     `gorm:"default:false" json:"quiet_hours_enabled"`
	QuietHoursStart   string   `gorm:"default:'22:00'" json:"quiet_hours_start"`
	QuietHoursEnd     string   `gorm:"default:'08:00'" json:"quiet_hours_end"`
	WorkingDays       []string `gorm:"serializer:json" json:"working_days"`
}

// NotificationPayload is what the transport collaborator delivers for one
// notification event. Aggregate (digest) payloads carry no single email.
type NotificationPayload struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Volume  int    `json:"volume,omitempty"` // sound method only
	EmailID uint   `json:"email_id,omitempty"`
}

// MethodEnabled reports whether a delivery method is switched on globally.
func (s *NotificationSettings) MethodEnabled(method string) bool {
	switch method {
	case MethodDesktop:
		return s.DesktopEnabled
	case MethodSound:
		return s.SoundEnabled
	case MethodEmail:
		return s.EmailEnabled
	}
	return false
}

// IsWorkingDay reports whether the given weekday is an active day.
func (s *NotificationSettings) IsWorkingDay(day time.Weekday) bool {
	for _, d := range s.WorkingDays {
		if d == day.String() {
			return true
		}
	}
	return false
}
