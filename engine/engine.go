package engine

import (
	"fmt"
	"log"

	"mailpilot/models"
)

// ArrivalNotifier receives the email after dispatch completes, so arrival
// notification rules can fire against the final processing state.
// Implemented by the notifier worker.
type ArrivalNotifier interface {
	EmailProcessed(email *models.Email)
}

// Engine ties matching and dispatch together: one call per arriving email.
type Engine struct {
	rules      RuleSource
	dispatcher *Dispatcher
	arrival    ArrivalNotifier
	logger     *log.Logger
}

func NewEngine(rules RuleSource, dispatcher *Dispatcher, arrival ArrivalNotifier, logger *log.Logger) *Engine {
	return &Engine{
		rules:      rules,
		dispatcher: dispatcher,
		arrival:    arrival,
		logger:     logger,
	}
}

// ProcessEmail evaluates all enabled rules against the email, applies the
// matched actions and hands the final state to the arrival notifier.
func (e *Engine) ProcessEmail(email *models.Email) (*ProcessingOutcome, error) {
	rules, err := e.rules.ListEnabledRules()
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled rules: %w", err)
	}

	matched := Match(email, rules)
	e.logger.Printf("Email %d matched %d of %d enabled rules", email.ID, len(matched), len(rules))

	outcome := e.dispatcher.Apply(email, matched)

	if e.arrival != nil {
		e.arrival.EmailProcessed(email)
	}

	return outcome, nil
}
