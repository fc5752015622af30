// Package store is the gorm-backed persistence layer behind the engine and
// worker interfaces. All database access funnels through here; the engine
// and notifier only see the narrow interfaces they declare.
package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mailpilot/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB

	// logHook, when set, receives every appended processing log entry.
	// Used by the websocket stream; set once during startup.
	logHook func(*models.ProcessingLogEntry)
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// SetLogHook registers the processing log stream callback. Must be called
// before any writer starts.
func (s *Store) SetLogHook(fn func(*models.ProcessingLogEntry)) {
	s.logHook = fn
}

// --- Emails ---

func (s *Store) CreateEmail(email *models.Email) error {
	return s.db.Create(email).Error
}

func (s *Store) GetEmail(id uint) (*models.Email, error) {
	var email models.Email
	if err := s.db.First(&email, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &email, nil
}

func (s *Store) GetEmailByMessageID(messageID string) (*models.Email, error) {
	var email models.Email
	err := s.db.Where("message_id = ?", messageID).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &email, nil
}

// SaveState persists the email's processing state. Callers serialize
// per-email writes (the dispatcher holds the email lock), so a full save
// is safe here.
func (s *Store) SaveState(email *models.Email) error {
	return s.db.Save(email).Error
}

// ListUnreadEmails returns unread, unarchived emails for the reminder scan.
func (s *Store) ListUnreadEmails() ([]models.Email, error) {
	var emails []models.Email
	err := s.db.Where("is_read = ? AND archived = ?", false, false).
		Order("arrived_at ASC").Find(&emails).Error
	return emails, err
}

// ListMeetingEmails returns unread emails with a registered meeting, for
// the digest's meeting section.
func (s *Store) ListMeetingEmails() ([]models.Email, error) {
	var emails []models.Email
	err := s.db.Where("meeting_registered = ? AND is_read = ?", true, false).
		Order("arrived_at ASC").Find(&emails).Error
	return emails, err
}

// ListDeadlineEmails returns unarchived emails whose upstream-flagged
// deadline falls at or before the cutoff.
func (s *Store) ListDeadlineEmails(until time.Time) ([]models.Email, error) {
	var emails []models.Email
	err := s.db.Where("deadline_at IS NOT NULL AND deadline_at <= ? AND archived = ?", until, false).
		Order("deadline_at ASC").Find(&emails).Error
	return emails, err
}

// --- Rules ---

func (s *Store) ListEnabledRules() ([]models.Rule, error) {
	var rules []models.Rule
	err := s.db.Where("enabled = ?", true).Order("priority DESC, id ASC").Find(&rules).Error
	return rules, err
}

func (s *Store) ListRules() ([]models.Rule, error) {
	var rules []models.Rule
	err := s.db.Order("priority DESC, id ASC").Find(&rules).Error
	return rules, err
}

func (s *Store) GetRule(id uint) (*models.Rule, error) {
	var rule models.Rule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (s *Store) CreateRule(rule *models.Rule) error {
	return s.db.Create(rule).Error
}

func (s *Store) UpdateRule(rule *models.Rule) error {
	return s.db.Save(rule).Error
}

func (s *Store) DeleteRule(id uint) error {
	return s.db.Delete(&models.Rule{}, id).Error
}

// --- Notification rules & settings ---

func (s *Store) ListEnabledNotificationRules() ([]models.NotificationRule, error) {
	var rules []models.NotificationRule
	err := s.db.Where("enabled = ?", true).Order("id ASC").Find(&rules).Error
	return rules, err
}

func (s *Store) ListNotificationRules() ([]models.NotificationRule, error) {
	var rules []models.NotificationRule
	err := s.db.Order("id ASC").Find(&rules).Error
	return rules, err
}

func (s *Store) GetNotificationRule(id uint) (*models.NotificationRule, error) {
	var rule models.NotificationRule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (s *Store) CreateNotificationRule(rule *models.NotificationRule) error {
	return s.db.Create(rule).Error
}

func (s *Store) UpdateNotificationRule(rule *models.NotificationRule) error {
	return s.db.Save(rule).Error
}

func (s *Store) DeleteNotificationRule(id uint) error {
	return s.db.Delete(&models.NotificationRule{}, id).Error
}

// MarkNotificationRuleFired records a digest fire time.
func (s *Store) MarkNotificationRuleFired(ruleID uint, firedAt time.Time) error {
	return s.db.Model(&models.NotificationRule{}).
		Where("id = ?", ruleID).
		Update("last_fired_at", firedAt).Error
}

// GetSettings loads the global notification settings, creating the default
// row on first use (Monday through Friday working days).
func (s *Store) GetSettings() (*models.NotificationSettings, error) {
	var settings models.NotificationSettings
	err := s.db.First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.NotificationSettings{
			Enabled:         true,
			DesktopEnabled:  true,
			SoundEnabled:    true,
			Volume:          70,
			QuietHoursStart: "22:00",
			QuietHoursEnd:   "08:00",
			WorkingDays:     []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		}
		if err := s.db.Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Store) SaveSettings(settings *models.NotificationSettings) error {
	return s.db.Save(settings).Error
}

// --- Processing log ---

// Append writes one immutable log entry and feeds the stream hook.
func (s *Store) Append(entry *models.ProcessingLogEntry) error {
	if err := s.db.Create(entry).Error; err != nil {
		return err
	}
	if s.logHook != nil {
		s.logHook(entry)
	}
	return nil
}

// LogFilter narrows a processing log query.
type LogFilter struct {
	EmailID uint
	RuleID  uint
	Kind    string
	Outcome string
	Limit   int
}

func (s *Store) QueryLogs(filter LogFilter) ([]models.ProcessingLogEntry, error) {
	q := s.db.Model(&models.ProcessingLogEntry{})
	if filter.EmailID != 0 {
		q = q.Where("email_id = ?", filter.EmailID)
	}
	if filter.RuleID != 0 {
		q = q.Where("rule_id = ?", filter.RuleID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Outcome != "" {
		q = q.Where("outcome = ?", filter.Outcome)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	var entries []models.ProcessingLogEntry
	err := q.Order("id DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// --- Dedup markers ---

func (s *Store) Seen(emailID, ownerID uint, kind string) (bool, error) {
	var count int64
	err := s.db.Model(&models.ActionMarker{}).
		Where("email_id = ? AND owner_id = ? AND kind = ?", emailID, ownerID, kind).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) Mark(emailID, ownerID uint, kind string) error {
	marker := models.ActionMarker{EmailID: emailID, OwnerID: ownerID, Kind: kind}
	// A concurrent writer may have set the marker already; that is fine.
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&marker).Error
}
