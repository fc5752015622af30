package utils

import (
	"fmt"
	"regexp"

	"github.com/badoux/checkmail"
	"github.com/go-playground/validator/v10"

	"mailpilot/models"
)

var validate = validator.New()

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateStruct runs the shared validator against any tagged struct.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidateEmailAddress checks address format (used for forward targets and
// email-method notification recipients before they ever reach the SMTP
// collaborator).
func ValidateEmailAddress(address string) error {
	if address == "" {
		return fmt.Errorf("email address is required")
	}
	if err := checkmail.ValidateFormat(address); err != nil {
		return fmt.Errorf("invalid email address %q: %v", address, err)
	}
	return nil
}

// ValidateClockTime checks an "HH:MM" wall-clock value.
func ValidateClockTime(value string) error {
	if !clockPattern.MatchString(value) {
		return fmt.Errorf("invalid time of day %q, expected HH:MM", value)
	}
	return nil
}

// ValidateRule checks a routing rule beyond tag validation: action
// parameters must be complete enough to execute.
func ValidateRule(rule *models.Rule) error {
	if err := validate.Var(rule.Name, "required"); err != nil {
		return fmt.Errorf("rule name is required")
	}
	for i, cond := range rule.Conditions {
		if err := validate.Struct(cond); err != nil {
			return fmt.Errorf("condition %d: %v", i, err)
		}
	}
	for i, action := range rule.Actions {
		if err := validate.Struct(action); err != nil {
			return fmt.Errorf("action %d: %v", i, err)
		}
		switch action.Type {
		case models.ActionForward:
			if err := ValidateEmailAddress(action.Target); err != nil {
				return fmt.Errorf("action %d: %v", i, err)
			}
		case models.ActionClassify:
			if action.Folder == "" {
				return fmt.Errorf("action %d: classify requires a folder", i)
			}
		case models.ActionFilter:
			switch action.Destination {
			case models.FilterTrash, models.FilterDelete, models.FilterQuarantine:
			default:
				return fmt.Errorf("action %d: unknown filter destination %q", i, action.Destination)
			}
		case models.ActionRemind:
			if action.IntervalMinutes <= 0 {
				return fmt.Errorf("action %d: remind requires a positive interval", i)
			}
		}
	}
	return nil
}

// ValidateNotificationRule checks type-specific required parameters.
func ValidateNotificationRule(rule *models.NotificationRule) error {
	if err := validate.Struct(rule); err != nil {
		return err
	}
	switch rule.Type {
	case models.NotifyReminder:
		if rule.IntervalMinutes <= 0 {
			return fmt.Errorf("reminder rules require a positive interval_minutes")
		}
	case models.NotifyDigest:
		if err := ValidateClockTime(rule.DigestTime); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSettings checks the global notification settings payload.
func ValidateSettings(settings *models.NotificationSettings) error {
	if err := validate.Struct(settings); err != nil {
		return err
	}
	if settings.QuietHoursEnabled {
		if err := ValidateClockTime(settings.QuietHoursStart); err != nil {
			return err
		}
		if err := ValidateClockTime(settings.QuietHoursEnd); err != nil {
			return err
		}
	}
	return nil
}
