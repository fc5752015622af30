package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"mailpilot/engine"
	"mailpilot/models"
	"mailpilot/utils"
)

// Marker kind for arrival notification dedup
const arrivalMarkerKind = "arrival_notification"

// NotifierStore is what the notifier needs from persistence. Each call is
// its own transaction; the notifier never holds a lock across a whole scan.
type NotifierStore interface {
	ListEnabledNotificationRules() ([]models.NotificationRule, error)
	GetSettings() (*models.NotificationSettings, error)
	ListUnreadEmails() ([]models.Email, error)
	ListMeetingEmails() ([]models.Email, error)
	ListDeadlineEmails(until time.Time) ([]models.Email, error)
	SaveState(email *models.Email) error
	Append(entry *models.ProcessingLogEntry) error
	Seen(emailID, ownerID uint, kind string) (bool, error)
	Mark(emailID, ownerID uint, kind string) error
	MarkNotificationRuleFired(ruleID uint, firedAt time.Time) error
}

// Notifier runs the notification schedule: arrival notifications right
// after dispatch, reminder scans and daily digests on a fixed tick. Every
// tick re-derives what is due from persisted state (last_notified_at,
// last_fired_at), so a restart never double-fires an interval.
type Notifier struct {
	store     NotifierStore
	transport engine.Transport
	logger    *log.Logger
	tickEvery time.Duration

	// now is swapped out in tests
	now func() time.Time
}

func NewNotifier(store NotifierStore, transport engine.Transport, logger *log.Logger, tickEvery time.Duration) *Notifier {
	return &Notifier{
		store:     store,
		transport: transport,
		logger:    logger,
		tickEvery: tickEvery,
		now:       time.Now,
	}
}

// Start runs the tick loop until the context is cancelled. An in-flight
// tick finishes before shutdown; no new tick starts after cancellation.
func (n *Notifier) Start(ctx context.Context) {
	n.logger.Println("Notifier worker started")

	ticker := time.NewTicker(n.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.logger.Println("Notifier worker shutting down...")
			return
		case <-ticker.C:
			n.tick()
		}
	}
}

func (n *Notifier) tick() {
	settings, err := n.store.GetSettings()
	if err != nil {
		n.logger.Printf("Failed to load notification settings: %v", err)
		return
	}

	// Master switch, checked once per tick so a mid-tick toggle cannot
	// leave the scan half-applied.
	if !settings.Enabled {
		return
	}

	rules, err := n.store.ListEnabledNotificationRules()
	if err != nil {
		n.logger.Printf("Failed to list notification rules: %v", err)
		return
	}

	unread, err := n.store.ListUnreadEmails()
	if err != nil {
		n.logger.Printf("Failed to list unread emails: %v", err)
		return
	}

	for _, rule := range rules {
		n.runRule(rule, settings, unread)
	}

	n.runEmailReminders(settings, unread)
}

// runRule isolates one notification rule: a failure (or panic) in one rule
// must not abort the remaining rules in the same tick.
func (n *Notifier) runRule(rule models.NotificationRule, settings *models.NotificationSettings, unread []models.Email) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("notification rule %d panicked: %v", rule.ID, r)
			n.logger.Print(err)
			utils.LogError("scheduler_tick_failed", err, map[string]interface{}{
				"notification_rule_id": rule.ID,
			})
		}
	}()

	switch rule.Type {
	case models.NotifyReminder:
		n.runReminder(rule, settings, unread)
	case models.NotifyDigest:
		n.runDigest(rule, settings)
	}
	// Arrival rules fire from EmailProcessed, not from the tick.
}

// EmailProcessed fires arrival notification rules against the email's
// final state once dispatch completes. At most once per email per rule,
// enforced with the same marker mechanism the dispatcher uses.
func (n *Notifier) EmailProcessed(email *models.Email) {
	settings, err := n.store.GetSettings()
	if err != nil {
		n.logger.Printf("Failed to load notification settings: %v", err)
		return
	}
	if !settings.Enabled {
		return
	}

	rules, err := n.store.ListEnabledNotificationRules()
	if err != nil {
		n.logger.Printf("Failed to list notification rules: %v", err)
		return
	}

	for _, rule := range rules {
		if rule.Type != models.NotifyArrival {
			continue
		}
		if !engine.EvaluateAll(rule.Conditions, email) {
			continue
		}

		seen, err := n.store.Seen(email.ID, rule.ID, arrivalMarkerKind)
		if err != nil {
			n.logger.Printf("Marker lookup failed for email %d: %v", email.ID, err)
		}
		if seen {
			continue
		}

		ruleID := rule.ID
		payload := models.NotificationPayload{
			Title:   "New email: " + email.Subject,
			Body:    fmt.Sprintf("From %s (%s)", email.From, email.SenderCategory),
			Volume:  settings.Volume,
			EmailID: email.ID,
		}
		n.deliver(rule.Methods, settings, payload, &ruleID, email.ID)

		if err := n.store.Mark(email.ID, rule.ID, arrivalMarkerKind); err != nil {
			n.logger.Printf("Failed to set arrival marker for email %d: %v", email.ID, err)
		}
		n.appendEvent(email.ID, &ruleID, models.EventArrivalNotified, models.OutcomeSuccess, "")
	}
}

// runReminder re-notifies unread matching emails whose interval has
// elapsed. Due means elapsed >= interval, nothing else; there is no
// in-flight bookkeeping to leak across restarts.
func (n *Notifier) runReminder(rule models.NotificationRule, settings *models.NotificationSettings, unread []models.Email) {
	for i := range unread {
		email := &unread[i]
		if !engine.EvaluateAll(rule.Conditions, email) {
			continue
		}
		if !n.due(email, rule.IntervalMinutes) {
			continue
		}

		ruleID := rule.ID
		payload := models.NotificationPayload{
			Title:   "Unread email reminder: " + email.Subject,
			Body:    fmt.Sprintf("From %s, waiting since %s", email.From, email.ArrivedAt.Format("15:04")),
			Volume:  settings.Volume,
			EmailID: email.ID,
		}

		if !n.deliver(rule.Methods, settings, payload, &ruleID, email.ID) {
			// Every selected method was quiet-hours suppressed: leave
			// last_notified_at untouched so the next tick re-evaluates.
			continue
		}

		n.markNotified(email)
		n.appendEvent(email.ID, &ruleID, models.EventReminderFired, models.OutcomeSuccess, "")
	}
}

// runEmailReminders handles per-email reminders requested by a rule's
// remind action, with the same due/fire semantics as reminder rules.
func (n *Notifier) runEmailReminders(settings *models.NotificationSettings, unread []models.Email) {
	for i := range unread {
		email := &unread[i]
		if email.RemindEvery <= 0 || !n.due(email, email.RemindEvery) {
			continue
		}

		payload := models.NotificationPayload{
			Title:   "Unread email reminder: " + email.Subject,
			Body:    fmt.Sprintf("From %s, waiting since %s", email.From, email.ArrivedAt.Format("15:04")),
			Volume:  settings.Volume,
			EmailID: email.ID,
		}

		methods := []string{models.MethodDesktop}
		if !n.deliver(methods, settings, payload, nil, email.ID) {
			continue
		}

		n.markNotified(email)
		n.appendEvent(email.ID, nil, models.EventReminderFired, models.OutcomeSuccess, "remind action")
	}
}

// runDigest fires once per working day at the configured time of day.
func (n *Notifier) runDigest(rule models.NotificationRule, settings *models.NotificationSettings) {
	now := n.now()
	if !settings.IsWorkingDay(now.Weekday()) {
		return
	}

	fireAt, err := clockToday(rule.DigestTime, now)
	if err != nil {
		n.logger.Printf("Digest rule %d has invalid time %q: %v", rule.ID, rule.DigestTime, err)
		return
	}
	if now.Before(fireAt) {
		return
	}
	if rule.LastFiredAt != nil && !rule.LastFiredAt.Before(fireAt) {
		// Already fired for today's slot.
		return
	}

	unread, err := n.store.ListUnreadEmails()
	if err != nil {
		n.logger.Printf("Digest: failed to list unread emails: %v", err)
		return
	}
	meetings, err := n.store.ListMeetingEmails()
	if err != nil {
		n.logger.Printf("Digest: failed to list meeting emails: %v", err)
		return
	}
	deadlines, err := n.store.ListDeadlineEmails(now.Add(48 * time.Hour))
	if err != nil {
		n.logger.Printf("Digest: failed to list deadline emails: %v", err)
		return
	}

	ruleID := rule.ID
	payload := models.NotificationPayload{
		Title:  fmt.Sprintf("Daily mail digest: %d unread, %d meetings, %d deadlines", len(unread), len(meetings), len(deadlines)),
		Body:   digestBody(unread, meetings, deadlines),
		Volume: settings.Volume,
	}
	n.deliver(rule.Methods, settings, payload, &ruleID, 0)

	if err := n.store.MarkNotificationRuleFired(rule.ID, now); err != nil {
		n.logger.Printf("Failed to record digest fire for rule %d: %v", rule.ID, err)
	}
	n.appendEvent(0, &ruleID, models.EventDigestFired, models.OutcomeSuccess,
		fmt.Sprintf("unread=%d meetings=%d deadlines=%d", len(unread), len(meetings), len(deadlines)))
}

// deliver attempts each selected method, honoring the per-method global
// switches and the quiet-hours gate for desktop/sound. It reports whether
// at least one method was actually attempted (delivered or failed);
// all-suppressed counts as not fired.
func (n *Notifier) deliver(methods []string, settings *models.NotificationSettings, payload models.NotificationPayload, notificationRuleID *uint, emailID uint) bool {
	attempted := false
	for _, method := range methods {
		if !settings.MethodEnabled(method) {
			continue
		}

		if (method == models.MethodDesktop || method == models.MethodSound) && InQuietHours(settings, n.now()) {
			n.appendEventEntry(&models.ProcessingLogEntry{
				EmailID:            emailID,
				NotificationRuleID: notificationRuleID,
				Kind:               models.EventNotifySuppressed,
				Outcome:            models.OutcomeSuppressed,
				Note:               method,
			})
			continue
		}

		attempted = true
		if err := n.transport.Deliver(method, payload); err != nil {
			n.appendEventEntry(&models.ProcessingLogEntry{
				EmailID:            emailID,
				NotificationRuleID: notificationRuleID,
				Kind:               models.EventNotifyDelivered,
				Outcome:            models.OutcomeFailed,
				Note:               fmt.Sprintf("%s: %v", method, err),
			})
			utils.LogError("notification_delivery_failed", err, map[string]interface{}{
				"method":   method,
				"email_id": emailID,
			})
			continue
		}
		n.appendEventEntry(&models.ProcessingLogEntry{
			EmailID:            emailID,
			NotificationRuleID: notificationRuleID,
			Kind:               models.EventNotifyDelivered,
			Outcome:            models.OutcomeSuccess,
			Note:               method,
		})
	}
	return attempted
}

// due checks whether the reminder interval has elapsed, measured from the
// last notification or arrival when never notified.
func (n *Notifier) due(email *models.Email, intervalMinutes int) bool {
	since := email.ArrivedAt
	if email.LastNotifiedAt != nil {
		since = *email.LastNotifiedAt
	}
	return n.now().Sub(since) >= time.Duration(intervalMinutes)*time.Minute
}

func (n *Notifier) markNotified(email *models.Email) {
	now := n.now()
	email.LastNotifiedAt = &now
	email.NotifiedCount++
	if err := n.store.SaveState(email); err != nil {
		n.logger.Printf("Failed to persist reminder state for email %d: %v", email.ID, err)
	}
}

func (n *Notifier) appendEvent(emailID uint, notificationRuleID *uint, kind, outcome, note string) {
	n.appendEventEntry(&models.ProcessingLogEntry{
		EmailID:            emailID,
		NotificationRuleID: notificationRuleID,
		Kind:               kind,
		Outcome:            outcome,
		Note:               note,
	})
}

func (n *Notifier) appendEventEntry(entry *models.ProcessingLogEntry) {
	if err := n.store.Append(entry); err != nil {
		n.logger.Printf("Failed to append notification log entry: %v", err)
	}
}

func digestBody(unread, meetings, deadlines []models.Email) string {
	var b strings.Builder
	writeSection := func(title string, emails []models.Email) {
		fmt.Fprintf(&b, "%s (%d)\n", title, len(emails))
		for i, email := range emails {
			if i == 5 {
				fmt.Fprintf(&b, "  ... and %d more\n", len(emails)-5)
				break
			}
			fmt.Fprintf(&b, "  - %s (from %s)\n", email.Subject, email.From)
		}
	}
	writeSection("Unread", unread)
	writeSection("Meetings", meetings)
	writeSection("Deadlines", deadlines)
	return b.String()
}
