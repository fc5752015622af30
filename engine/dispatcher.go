package engine

import (
	"fmt"
	"log"

	"mailpilot/models"
	"mailpilot/utils"
)

// ActionResult is the recorded outcome of one action execution.
type ActionResult struct {
	RuleID  uint              `json:"rule_id"`
	Action  models.ActionType `json:"action"`
	Outcome string            `json:"outcome"`
	Note    string            `json:"note,omitempty"`
}

// ProcessingOutcome aggregates the per-action results of one dispatch. The
// caller decides what to do about failed forward/meeting actions; the
// dispatcher itself never retries.
type ProcessingOutcome struct {
	EmailID uint           `json:"email_id"`
	Results []ActionResult `json:"results"`
}

// Failed returns the results that did not succeed.
func (o *ProcessingOutcome) Failed() []ActionResult {
	var failed []ActionResult
	for _, r := range o.Results {
		if r.Outcome == models.OutcomeFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Dispatcher executes the ordered action lists of matched rules against an
// email. Dispatches for the same email are serialized; a failing action is
// logged and skipped over, never blocking its siblings or later rules.
type Dispatcher struct {
	emails    EmailStore
	plog      ProcessingLog
	markers   MarkerStore
	transport Transport
	logger    *log.Logger
	locks     *emailLocks
}

func NewDispatcher(emails EmailStore, plog ProcessingLog, markers MarkerStore, transport Transport, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		emails:    emails,
		plog:      plog,
		markers:   markers,
		transport: transport,
		logger:    logger,
		locks:     newEmailLocks(),
	}
}

// Apply runs every action of every matched rule. Within a rule, actions run
// in declared order and later actions observe earlier mutations. Across
// rules the last writer wins on shared fields (folder, priority); matched
// arrives sorted highest-priority-first, so execution walks it in reverse
// and the highest-priority rule writes last and wins conflicts.
func (d *Dispatcher) Apply(email *models.Email, matched []models.Rule) *ProcessingOutcome {
	m := d.locks.lock(email.ID)
	defer m.Unlock()

	outcome := &ProcessingOutcome{EmailID: email.ID}

	for i := len(matched) - 1; i >= 0; i-- {
		rule := matched[i]
		for _, action := range rule.Actions {
			result := d.execute(email, rule, action)
			outcome.Results = append(outcome.Results, result)

			ruleID := rule.ID
			if err := d.plog.Append(&models.ProcessingLogEntry{
				EmailID: email.ID,
				RuleID:  &ruleID,
				Kind:    string(action.Type),
				Outcome: result.Outcome,
				Note:    result.Note,
			}); err != nil {
				d.logger.Printf("Failed to append processing log for email %d: %v", email.ID, err)
			}
		}
	}

	if err := d.emails.SaveState(email); err != nil {
		d.logger.Printf("Failed to persist state for email %d: %v", email.ID, err)
		utils.LogError("email_state_save_failed", err, map[string]interface{}{
			"email_id": email.ID,
		})
	}

	return outcome
}

func (d *Dispatcher) execute(email *models.Email, rule models.Rule, action models.RuleAction) ActionResult {
	result := ActionResult{RuleID: rule.ID, Action: action.Type, Outcome: models.OutcomeSuccess}

	switch action.Type {
	case models.ActionMarkPriority:
		level := action.Priority
		if level == "" {
			level = models.PriorityHigh
		}
		email.Priority = level

	case models.ActionFilter:
		switch action.Destination {
		case models.FilterQuarantine:
			email.Folder = utils.Pointer("Quarantine")
		case models.FilterDelete:
			// The engine never deletes mail; "delete" files to trash and
			// archives so the mailbox collaborator can expunge later.
			email.Folder = utils.Pointer("Trash")
			email.Archived = true
		default: // trash, and the conservative fallback for unknown destinations
			email.Folder = utils.Pointer("Trash")
		}

	case models.ActionMarkRead:
		email.IsRead = true

	case models.ActionClassify:
		if action.Folder == "" {
			result.Outcome = models.OutcomeFailed
			result.Note = "classify action has no target folder"
			break
		}
		email.Folder = utils.Pointer(action.Folder)

	case models.ActionArchive:
		if action.Folder != "" {
			email.Folder = utils.Pointer(action.Folder)
		}
		email.Archived = true

	case models.ActionRemind:
		if action.IntervalMinutes <= 0 {
			result.Outcome = models.OutcomeFailed
			result.Note = "remind action needs a positive interval"
			break
		}
		email.RemindEvery = action.IntervalMinutes

	case models.ActionForward:
		result = d.executeOnce(email, rule, action, func() error {
			return d.transport.Send(action, email)
		})

	case models.ActionRegisterMeeting:
		result = d.executeOnce(email, rule, action, func() error {
			if err := d.transport.RegisterMeeting(action.CalendarRef, email); err != nil {
				return err
			}
			email.MeetingRegistered = true
			if action.CalendarRef != "" {
				email.MeetingRef = utils.Pointer(action.CalendarRef)
			}
			return nil
		})

	default:
		result.Outcome = models.OutcomeFailed
		result.Note = fmt.Sprintf("unknown action type %q", action.Type)
	}

	return result
}

// executeOnce guards the actions that are not naturally idempotent
// (forward, meeting registration) with a persisted marker: a repeat
// dispatch skips the side effect and records the skip as a deduplicated
// success. The marker is only set after the transport call succeeds, so a
// failed send stays retryable by the caller.
func (d *Dispatcher) executeOnce(email *models.Email, rule models.Rule, action models.RuleAction, run func() error) ActionResult {
	result := ActionResult{RuleID: rule.ID, Action: action.Type, Outcome: models.OutcomeSuccess}

	seen, err := d.markers.Seen(email.ID, rule.ID, string(action.Type))
	if err != nil {
		// Treat an unreadable marker store as "not seen": re-running a
		// forward is recoverable, silently dropping one is not.
		d.logger.Printf("Marker lookup failed for email %d rule %d: %v", email.ID, rule.ID, err)
	}
	if seen {
		result.Note = "deduplicated"
		return result
	}

	if err := run(); err != nil {
		result.Outcome = models.OutcomeFailed
		result.Note = err.Error()
		utils.LogError("action_execution_failed", err, map[string]interface{}{
			"email_id": email.ID,
			"rule_id":  rule.ID,
			"action":   string(action.Type),
		})
		return result
	}

	if err := d.markers.Mark(email.ID, rule.ID, string(action.Type)); err != nil {
		d.logger.Printf("Failed to set dedup marker for email %d rule %d: %v", email.ID, rule.ID, err)
	}
	return result
}
