package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mailpilot/models"
)

func subjectRule(id uint, priority int, keyword string) models.Rule {
	return models.Rule{
		Model:    gorm.Model{ID: id},
		Name:     keyword,
		Enabled:  true,
		Priority: priority,
		Conditions: models.ConditionList{
			{Field: models.FieldSubject, Operator: models.OperatorContainsAny, Keywords: []string{keyword}},
		},
	}
}

func TestMatchOrdersByPriorityThenID(t *testing.T) {
	email := &models.Email{Subject: "quarterly report review"}

	rules := []models.Rule{
		subjectRule(1, 0, "report"),
		subjectRule(2, 10, "review"),
		subjectRule(3, 10, "quarterly"),
		subjectRule(4, 5, "report"),
	}

	matched := Match(email, rules)
	require.Len(t, matched, 4)

	assert.Equal(t, uint(2), matched[0].ID, "highest priority first, ID breaks the tie")
	assert.Equal(t, uint(3), matched[1].ID)
	assert.Equal(t, uint(4), matched[2].ID)
	assert.Equal(t, uint(1), matched[3].ID)
}

func TestMatchSkipsDisabledRules(t *testing.T) {
	email := &models.Email{Subject: "report"}

	disabled := subjectRule(1, 100, "report")
	disabled.Enabled = false

	matched := Match(email, []models.Rule{disabled, subjectRule(2, 0, "report")})
	require.Len(t, matched, 1)
	assert.Equal(t, uint(2), matched[0].ID)
}

func TestMatchEmptyConditionsNeverMatch(t *testing.T) {
	catchAll := models.Rule{Model: gorm.Model{ID: 1}, Name: "catch-all", Enabled: true}
	matched := Match(&models.Email{Subject: "anything"}, []models.Rule{catchAll})
	assert.Empty(t, matched)
}

func TestMatchIsDeterministic(t *testing.T) {
	email := &models.Email{Subject: "weekly sync notes"}
	rules := []models.Rule{
		subjectRule(5, 3, "sync"),
		subjectRule(2, 3, "weekly"),
		subjectRule(9, 7, "notes"),
	}

	first := Match(email, rules)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Match(email, rules))
	}
	assert.Zero(t, email.Priority, "matching must not mutate the email")
}
