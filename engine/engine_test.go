package engine

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mailpilot/models"
)

type fakeRuleSource struct {
	rules []models.Rule
}

func (f *fakeRuleSource) ListEnabledRules() ([]models.Rule, error) {
	return f.rules, nil
}

type recordingNotifier struct {
	processed []uint
}

func (r *recordingNotifier) EmailProcessed(email *models.Email) {
	r.processed = append(r.processed, email.ID)
}

func TestProcessEmailUrgentLeaderMail(t *testing.T) {
	dispatcher, _, _, _, _ := testDispatcher(t)
	rules := &fakeRuleSource{rules: []models.Rule{
		{
			Model:   gorm.Model{ID: 1},
			Name:    "urgent leadership mail",
			Enabled: true,
			Conditions: models.ConditionList{
				{Field: models.FieldSenderCategory, Operator: models.OperatorEquals, Value: "internal_leader"},
				{Field: models.FieldSubject, Operator: models.OperatorContainsAny, Keywords: []string{"紧急"}},
			},
			Actions: models.ActionList{
				{Type: models.ActionMarkPriority, Priority: models.PriorityHigh},
				{Type: models.ActionClassify, Folder: "重要邮件"},
			},
		},
	}}
	notifier := &recordingNotifier{}
	eng := NewEngine(rules, dispatcher, notifier, log.New(io.Discard, "", 0))

	email := &models.Email{
		Model:          gorm.Model{ID: 42},
		From:           "boss@corp.test",
		SenderCategory: models.SenderInternalLeader,
		Subject:        "紧急：合同审批",
	}

	outcome, err := eng.ProcessEmail(email)
	require.NoError(t, err)
	require.Len(t, outcome.Results, 2)
	assert.Empty(t, outcome.Failed())

	assert.Equal(t, models.PriorityHigh, email.Priority)
	require.NotNil(t, email.Folder)
	assert.Equal(t, "重要邮件", *email.Folder)

	assert.Equal(t, []uint{42}, notifier.processed, "arrival notifier sees the processed email")
}

func TestProcessEmailNoMatchStillNotifiesArrival(t *testing.T) {
	dispatcher, emails, _, _, _ := testDispatcher(t)
	notifier := &recordingNotifier{}
	eng := NewEngine(&fakeRuleSource{}, dispatcher, notifier, log.New(io.Discard, "", 0))

	email := &models.Email{Model: gorm.Model{ID: 7}, Subject: "hello"}
	outcome, err := eng.ProcessEmail(email)
	require.NoError(t, err)
	assert.Empty(t, outcome.Results)
	assert.Equal(t, 1, emails.saved, "final state is persisted even without matches")
	assert.Equal(t, []uint{7}, notifier.processed)
}
