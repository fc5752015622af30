package engine

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mailpilot/models"
)

type fakeEmailStore struct {
	saved int
}

func (f *fakeEmailStore) SaveState(email *models.Email) error {
	f.saved++
	return nil
}

type fakeLog struct {
	entries []models.ProcessingLogEntry
}

func (f *fakeLog) Append(entry *models.ProcessingLogEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

type markerKey struct {
	emailID, ownerID uint
	kind             string
}

type fakeMarkers struct {
	seen map[markerKey]bool
}

func newFakeMarkers() *fakeMarkers {
	return &fakeMarkers{seen: make(map[markerKey]bool)}
}

func (f *fakeMarkers) Seen(emailID, ownerID uint, kind string) (bool, error) {
	return f.seen[markerKey{emailID, ownerID, kind}], nil
}

func (f *fakeMarkers) Mark(emailID, ownerID uint, kind string) error {
	f.seen[markerKey{emailID, ownerID, kind}] = true
	return nil
}

type fakeTransport struct {
	sends    []models.RuleAction
	meetings []string
	sendErr  error
}

func (f *fakeTransport) Send(action models.RuleAction, email *models.Email) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sends = append(f.sends, action)
	return nil
}

func (f *fakeTransport) RegisterMeeting(calendarRef string, email *models.Email) error {
	f.meetings = append(f.meetings, calendarRef)
	return nil
}

func (f *fakeTransport) Deliver(method string, payload models.NotificationPayload) error {
	return nil
}

func testDispatcher(t *testing.T) (*Dispatcher, *fakeEmailStore, *fakeLog, *fakeMarkers, *fakeTransport) {
	t.Helper()
	emails := &fakeEmailStore{}
	plog := &fakeLog{}
	markers := newFakeMarkers()
	transport := &fakeTransport{}
	d := NewDispatcher(emails, plog, markers, transport, log.New(io.Discard, "", 0))
	return d, emails, plog, markers, transport
}

func actionRule(id uint, priority int, actions ...models.RuleAction) models.Rule {
	return models.Rule{
		Model:    gorm.Model{ID: id},
		Enabled:  true,
		Priority: priority,
		Actions:  actions,
	}
}

func TestApplyRunsActionsInDeclaredOrder(t *testing.T) {
	d, emails, plog, _, _ := testDispatcher(t)
	email := &models.Email{Model: gorm.Model{ID: 1}}

	rule := actionRule(1, 0,
		models.RuleAction{Type: models.ActionMarkPriority, Priority: models.PriorityHigh},
		models.RuleAction{Type: models.ActionClassify, Folder: "Leadership"},
		models.RuleAction{Type: models.ActionMarkRead},
	)

	outcome := d.Apply(email, []models.Rule{rule})

	require.Len(t, outcome.Results, 3)
	assert.Equal(t, models.ActionMarkPriority, outcome.Results[0].Action)
	assert.Equal(t, models.ActionClassify, outcome.Results[1].Action)
	assert.Equal(t, models.ActionMarkRead, outcome.Results[2].Action)
	assert.Empty(t, outcome.Failed())

	assert.Equal(t, models.PriorityHigh, email.Priority)
	require.NotNil(t, email.Folder)
	assert.Equal(t, "Leadership", *email.Folder)
	assert.True(t, email.IsRead)

	assert.Equal(t, 1, emails.saved)
	assert.Len(t, plog.entries, 3, "one log entry per executed action")
}

func TestApplyHighestPriorityRuleWinsFieldConflicts(t *testing.T) {
	d, _, _, _, _ := testDispatcher(t)
	email := &models.Email{Model: gorm.Model{ID: 1}}

	// Matched arrives highest-priority-first, as Match produces it.
	matched := []models.Rule{
		actionRule(2, 10, models.RuleAction{Type: models.ActionClassify, Folder: "Y"}),
		actionRule(1, 1, models.RuleAction{Type: models.ActionClassify, Folder: "X"}),
	}

	d.Apply(email, matched)

	require.NotNil(t, email.Folder)
	assert.Equal(t, "Y", *email.Folder, "priority 10 rule must win the folder conflict")
}

func TestApplyFailedActionDoesNotBlockSiblings(t *testing.T) {
	d, _, plog, _, transport := testDispatcher(t)
	transport.sendErr = errors.New("smtp unreachable")
	email := &models.Email{Model: gorm.Model{ID: 1}}

	rule := actionRule(1, 0,
		models.RuleAction{Type: models.ActionForward, Target: "ops@corp.test"},
		models.RuleAction{Type: models.ActionMarkRead},
	)

	outcome := d.Apply(email, []models.Rule{rule})

	require.Len(t, outcome.Results, 2)
	assert.Equal(t, models.OutcomeFailed, outcome.Results[0].Outcome)
	assert.Equal(t, models.OutcomeSuccess, outcome.Results[1].Outcome)
	assert.True(t, email.IsRead, "later action still ran")

	failed := outcome.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, models.ActionForward, failed[0].Action)

	// Failure is recorded in the processing log, not just the outcome
	var loggedFailed int
	for _, e := range plog.entries {
		if e.Outcome == models.OutcomeFailed {
			loggedFailed++
		}
	}
	assert.Equal(t, 1, loggedFailed)
}

func TestApplyForwardIsDeduplicatedOnRepeat(t *testing.T) {
	d, _, _, _, transport := testDispatcher(t)
	email := &models.Email{Model: gorm.Model{ID: 1}}
	rule := actionRule(1, 0, models.RuleAction{Type: models.ActionForward, Target: "ops@corp.test"})

	first := d.Apply(email, []models.Rule{rule})
	second := d.Apply(email, []models.Rule{rule})

	assert.Len(t, transport.sends, 1, "exactly one outbound send across both dispatches")
	assert.Equal(t, models.OutcomeSuccess, first.Results[0].Outcome)
	assert.Equal(t, models.OutcomeSuccess, second.Results[0].Outcome)
	assert.Equal(t, "deduplicated", second.Results[0].Note)
}

func TestApplyFailedForwardStaysRetryable(t *testing.T) {
	d, _, _, _, transport := testDispatcher(t)
	email := &models.Email{Model: gorm.Model{ID: 1}}
	rule := actionRule(1, 0, models.RuleAction{Type: models.ActionForward, Target: "ops@corp.test"})

	transport.sendErr = errors.New("smtp unreachable")
	first := d.Apply(email, []models.Rule{rule})
	assert.Equal(t, models.OutcomeFailed, first.Results[0].Outcome)

	// The marker is only set on success, so the next dispatch sends for real.
	transport.sendErr = nil
	second := d.Apply(email, []models.Rule{rule})
	assert.Equal(t, models.OutcomeSuccess, second.Results[0].Outcome)
	assert.Empty(t, second.Results[0].Note)
	assert.Len(t, transport.sends, 1)
}

func TestApplyIsIdempotentForStateActions(t *testing.T) {
	d, _, _, _, _ := testDispatcher(t)
	email := &models.Email{Model: gorm.Model{ID: 1}}

	matched := []models.Rule{
		actionRule(1, 0,
			models.RuleAction{Type: models.ActionMarkPriority},
			models.RuleAction{Type: models.ActionFilter, Destination: models.FilterQuarantine},
			models.RuleAction{Type: models.ActionRemind, IntervalMinutes: 30},
		),
	}

	d.Apply(email, matched)
	after := *email
	d.Apply(email, matched)

	assert.Equal(t, after.Priority, email.Priority)
	assert.Equal(t, *after.Folder, *email.Folder)
	assert.Equal(t, after.RemindEvery, email.RemindEvery)
	assert.Equal(t, after.Archived, email.Archived)
}

func TestApplyFilterDestinations(t *testing.T) {
	t.Run("trash", func(t *testing.T) {
		d, _, _, _, _ := testDispatcher(t)
		email := &models.Email{Model: gorm.Model{ID: 1}}
		d.Apply(email, []models.Rule{actionRule(1, 0, models.RuleAction{Type: models.ActionFilter, Destination: models.FilterTrash})})
		require.NotNil(t, email.Folder)
		assert.Equal(t, "Trash", *email.Folder)
		assert.False(t, email.Archived)
	})

	t.Run("delete files to trash and archives", func(t *testing.T) {
		d, _, _, _, _ := testDispatcher(t)
		email := &models.Email{Model: gorm.Model{ID: 2}}
		d.Apply(email, []models.Rule{actionRule(1, 0, models.RuleAction{Type: models.ActionFilter, Destination: models.FilterDelete})})
		require.NotNil(t, email.Folder)
		assert.Equal(t, "Trash", *email.Folder)
		assert.True(t, email.Archived)
	})

	t.Run("quarantine", func(t *testing.T) {
		d, _, _, _, _ := testDispatcher(t)
		email := &models.Email{Model: gorm.Model{ID: 3}}
		d.Apply(email, []models.Rule{actionRule(1, 0, models.RuleAction{Type: models.ActionFilter, Destination: models.FilterQuarantine})})
		require.NotNil(t, email.Folder)
		assert.Equal(t, "Quarantine", *email.Folder)
	})
}

func TestApplyRegisterMeeting(t *testing.T) {
	d, _, _, _, transport := testDispatcher(t)
	email := &models.Email{Model: gorm.Model{ID: 1}}
	rule := actionRule(1, 0, models.RuleAction{Type: models.ActionRegisterMeeting, CalendarRef: "team-standups"})

	d.Apply(email, []models.Rule{rule})
	d.Apply(email, []models.Rule{rule})

	assert.Len(t, transport.meetings, 1, "meeting registered exactly once")
	assert.True(t, email.MeetingRegistered)
	require.NotNil(t, email.MeetingRef)
	assert.Equal(t, "team-standups", *email.MeetingRef)
}

func TestApplyMalformedActionFailsWithoutMutation(t *testing.T) {
	d, _, _, _, _ := testDispatcher(t)
	email := &models.Email{Model: gorm.Model{ID: 1}}

	outcome := d.Apply(email, []models.Rule{
		actionRule(1, 0,
			models.RuleAction{Type: models.ActionClassify}, // no folder
			models.RuleAction{Type: "explode"},
			models.RuleAction{Type: models.ActionRemind, IntervalMinutes: -5},
		),
	})

	assert.Len(t, outcome.Failed(), 3)
	assert.Nil(t, email.Folder)
	assert.Zero(t, email.RemindEvery)
}
