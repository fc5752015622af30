package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/config"
	"mailpilot/models"
)

func setupDirectory(t *testing.T) {
	t.Helper()
	prev := config.AppConfig
	t.Cleanup(func() { config.AppConfig = prev })

	config.AppConfig.InternalDomain = "corp.test"
	config.AppConfig.PeerDomains = []string{"partner.test"}
	config.AppConfig.LeaderAddresses = []string{"ceo@corp.test", "dir@partner.test", "chief@gov.test"}
	config.AppConfig.AllowlistAddresses = []string{"alerts@vendor.test"}
	config.AppConfig.ServiceAuthSecret = "test-secret"
}

func TestResolveSenderCategory(t *testing.T) {
	setupDirectory(t)

	cases := []struct {
		from string
		want string
	}{
		{"alice@corp.test", models.SenderInternalStaff},
		{"CEO@corp.test", models.SenderInternalLeader},
		{"bob@partner.test", models.SenderPeerStaff},
		{"dir@partner.test", models.SenderPeerLeader},
		{"chief@gov.test", models.SenderCrossOrgLeader},
		{"alerts@vendor.test", models.SenderAllowlist},
		{"spam@unknown.test", models.SenderExternal},
		{"", models.SenderExternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveSenderCategory(tc.from), tc.from)
	}
}

func TestServiceTokenRoundTrip(t *testing.T) {
	setupDirectory(t)

	token, err := GenerateServiceToken("ui-backend")
	require.NoError(t, err)

	claims, err := ParseServiceToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ui-backend", claims.Service)

	_, err = ParseServiceToken(token + "x")
	assert.Error(t, err)
}

func TestValidateRule(t *testing.T) {
	good := &models.Rule{
		Name: "leader mail",
		Conditions: models.ConditionList{
			{Field: models.FieldSenderCategory, Operator: models.OperatorEquals, Value: "internal_leader"},
		},
		Actions: models.ActionList{
			{Type: models.ActionMarkPriority, Priority: models.PriorityHigh},
			{Type: models.ActionForward, Target: "ops@corp.test"},
		},
	}
	assert.NoError(t, ValidateRule(good))

	noName := &models.Rule{Actions: models.ActionList{{Type: models.ActionMarkRead}}}
	assert.Error(t, ValidateRule(noName))

	badForward := &models.Rule{
		Name:    "bad forward",
		Actions: models.ActionList{{Type: models.ActionForward, Target: "not-an-address"}},
	}
	assert.Error(t, ValidateRule(badForward))

	badFilter := &models.Rule{
		Name:    "bad filter",
		Actions: models.ActionList{{Type: models.ActionFilter, Destination: "shred"}},
	}
	assert.Error(t, ValidateRule(badFilter))

	badRemind := &models.Rule{
		Name:    "bad remind",
		Actions: models.ActionList{{Type: models.ActionRemind}},
	}
	assert.Error(t, ValidateRule(badRemind))
}

func TestValidateNotificationRule(t *testing.T) {
	reminder := &models.NotificationRule{
		Name:    "unread nag",
		Type:    models.NotifyReminder,
		Methods: []string{models.MethodDesktop},
	}
	assert.Error(t, ValidateNotificationRule(reminder), "reminder needs an interval")

	reminder.IntervalMinutes = 30
	assert.NoError(t, ValidateNotificationRule(reminder))

	digest := &models.NotificationRule{
		Name:       "daily digest",
		Type:       models.NotifyDigest,
		Methods:    []string{models.MethodEmail},
		DigestTime: "24:00",
	}
	assert.Error(t, ValidateNotificationRule(digest))

	digest.DigestTime = "09:30"
	assert.NoError(t, ValidateNotificationRule(digest))
}

func TestValidateClockTime(t *testing.T) {
	assert.NoError(t, ValidateClockTime("00:00"))
	assert.NoError(t, ValidateClockTime("23:59"))
	assert.Error(t, ValidateClockTime("24:00"))
	assert.Error(t, ValidateClockTime("9:30"))
	assert.Error(t, ValidateClockTime("nine"))
}
