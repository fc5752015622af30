package engine

import (
	"strings"

	"mailpilot/models"
)

// EvaluateCondition reports whether one condition holds for an email. It is
// total: a malformed or unknown condition evaluates to false, never to an
// error, so a bad rule degrades to "no match" instead of breaking dispatch.
func EvaluateCondition(cond models.RuleCondition, email *models.Email) bool {
	switch cond.Field {
	case models.FieldSenderCategory:
		return cond.Operator == models.OperatorEquals &&
			cond.Value != "" &&
			strings.EqualFold(email.SenderCategory, cond.Value)

	case models.FieldSender:
		return cond.Operator == models.OperatorEquals &&
			cond.Value != "" &&
			strings.EqualFold(email.From, cond.Value)

	case models.FieldSubject:
		return cond.Operator == models.OperatorContainsAny &&
			containsAny(email.Subject, cond.Keywords)

	case models.FieldBody:
		return cond.Operator == models.OperatorContainsAny &&
			containsAny(email.Body, cond.Keywords)

	case models.FieldRecipientCount:
		return compare(int64(len(email.Recipients)), cond.Operator, cond.Amount)

	case models.FieldAttachmentCount:
		return compare(int64(email.AttachmentCount), cond.Operator, cond.Amount)

	case models.FieldSize:
		return compare(email.Size, cond.Operator, cond.Amount)
	}
	return false
}

// EvaluateAll reports whether every condition holds. An empty condition
// list evaluates to false: a rule without conditions must never match.
func EvaluateAll(conds models.ConditionList, email *models.Email) bool {
	if len(conds) == 0 {
		return false
	}
	for _, cond := range conds {
		if !EvaluateCondition(cond, email) {
			return false
		}
	}
	return true
}

// containsAny is a case-insensitive substring match against any of the
// keywords (users enter alternative trigger phrases, so one hit is enough).
func containsAny(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func compare(have int64, op models.ConditionOperator, want int64) bool {
	switch op {
	case models.OperatorGT:
		return have > want
	case models.OperatorGTE:
		return have >= want
	case models.OperatorLT:
		return have < want
	case models.OperatorLTE:
		return have <= want
	case models.OperatorEQ:
		return have == want
	}
	return false
}
