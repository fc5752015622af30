package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mailpilot/models"
)

func TestEvaluateConditionSenderCategory(t *testing.T) {
	email := &models.Email{SenderCategory: models.SenderInternalLeader}

	assert.True(t, EvaluateCondition(models.RuleCondition{
		Field:    models.FieldSenderCategory,
		Operator: models.OperatorEquals,
		Value:    "internal_leader",
	}, email))

	assert.False(t, EvaluateCondition(models.RuleCondition{
		Field:    models.FieldSenderCategory,
		Operator: models.OperatorEquals,
		Value:    "external",
	}, email))

	// Empty expected value never matches, even against an empty field
	assert.False(t, EvaluateCondition(models.RuleCondition{
		Field:    models.FieldSenderCategory,
		Operator: models.OperatorEquals,
	}, &models.Email{}))
}

func TestEvaluateConditionKeywordsMatchAnyOf(t *testing.T) {
	email := &models.Email{Subject: "Re: 紧急 server incident"}

	cond := models.RuleCondition{
		Field:    models.FieldSubject,
		Operator: models.OperatorContainsAny,
		Keywords: []string{"urgent", "紧急"},
	}
	assert.True(t, EvaluateCondition(cond, email), "one keyword hit is enough")

	cond.Keywords = []string{"invoice", "receipt"}
	assert.False(t, EvaluateCondition(cond, email))

	cond.Keywords = nil
	assert.False(t, EvaluateCondition(cond, email), "no keywords means no match")
}

func TestEvaluateConditionKeywordsCaseInsensitive(t *testing.T) {
	email := &models.Email{Body: "Please REVIEW the attached report"}
	assert.True(t, EvaluateCondition(models.RuleCondition{
		Field:    models.FieldBody,
		Operator: models.OperatorContainsAny,
		Keywords: []string{"review"},
	}, email))
}

func TestEvaluateConditionNumericComparators(t *testing.T) {
	email := &models.Email{
		Recipients:      []string{"a@corp.test", "b@corp.test", "c@corp.test"},
		AttachmentCount: 2,
		Size:            5 << 20,
	}

	cases := []struct {
		name string
		cond models.RuleCondition
		want bool
	}{
		{"recipients gt", models.RuleCondition{Field: models.FieldRecipientCount, Operator: models.OperatorGT, Amount: 2}, true},
		{"recipients gt equal", models.RuleCondition{Field: models.FieldRecipientCount, Operator: models.OperatorGT, Amount: 3}, false},
		{"recipients gte", models.RuleCondition{Field: models.FieldRecipientCount, Operator: models.OperatorGTE, Amount: 3}, true},
		{"attachments eq", models.RuleCondition{Field: models.FieldAttachmentCount, Operator: models.OperatorEQ, Amount: 2}, true},
		{"attachments lt", models.RuleCondition{Field: models.FieldAttachmentCount, Operator: models.OperatorLT, Amount: 2}, false},
		{"size lte", models.RuleCondition{Field: models.FieldSize, Operator: models.OperatorLTE, Amount: 5 << 20}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EvaluateCondition(tc.cond, email))
		})
	}
}

func TestEvaluateConditionMalformedIsFalse(t *testing.T) {
	email := &models.Email{Subject: "hello", SenderCategory: models.SenderExternal}

	// Unknown field
	assert.False(t, EvaluateCondition(models.RuleCondition{
		Field:    "importance",
		Operator: models.OperatorEquals,
		Value:    "high",
	}, email))

	// Operator that does not fit the field
	assert.False(t, EvaluateCondition(models.RuleCondition{
		Field:    models.FieldSubject,
		Operator: models.OperatorEquals,
		Value:    "hello",
	}, email))
	assert.False(t, EvaluateCondition(models.RuleCondition{
		Field:    models.FieldSenderCategory,
		Operator: models.OperatorContainsAny,
		Keywords: []string{"external"},
	}, email))

	// Unknown comparator on a numeric field
	assert.False(t, EvaluateCondition(models.RuleCondition{
		Field:    models.FieldSize,
		Operator: "between",
		Amount:   100,
	}, email))
}

func TestEvaluateAllIsConjunction(t *testing.T) {
	email := &models.Email{
		SenderCategory: models.SenderInternalLeader,
		Subject:        "紧急: budget approval",
	}

	both := models.ConditionList{
		{Field: models.FieldSenderCategory, Operator: models.OperatorEquals, Value: "internal_leader"},
		{Field: models.FieldSubject, Operator: models.OperatorContainsAny, Keywords: []string{"紧急", "urgent"}},
	}
	assert.True(t, EvaluateAll(both, email))

	oneFails := models.ConditionList{
		{Field: models.FieldSenderCategory, Operator: models.OperatorEquals, Value: "external"},
		{Field: models.FieldSubject, Operator: models.OperatorContainsAny, Keywords: []string{"紧急"}},
	}
	assert.False(t, EvaluateAll(oneFails, email))
}

func TestEvaluateAllEmptyNeverMatches(t *testing.T) {
	assert.False(t, EvaluateAll(nil, &models.Email{Subject: "anything"}))
	assert.False(t, EvaluateAll(models.ConditionList{}, &models.Email{}))
}
