package engine

import (
	"sort"

	"mailpilot/models"
)

// Match returns the rules whose conditions all hold for the email, ordered
// by descending priority with ties broken by ascending rule ID. The result
// is deterministic for a given input and the email is never mutated, so
// Match is safe to call concurrently and repeatedly.
func Match(email *models.Email, rules []models.Rule) []models.Rule {
	matched := make([]models.Rule, 0, len(rules))
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if EvaluateAll(rule.Conditions, email) {
			matched = append(matched, rule)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})

	return matched
}
