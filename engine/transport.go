package engine

import "mailpilot/models"

// Transport is the external collaborator that performs the actual network
// work: forwarding mail, registering calendar entries and delivering
// notifications. The engine records outcomes but never retries; retry
// policy belongs to the transport side.
type Transport interface {
	Send(action models.RuleAction, email *models.Email) error
	RegisterMeeting(calendarRef string, email *models.Email) error
	Deliver(method string, payload models.NotificationPayload) error
}

// ProcessingLog is the append-only outcome record shared by the dispatcher
// and the notifier. Entries are self-contained, so concurrent appends from
// both writers need no coordination beyond the store itself.
type ProcessingLog interface {
	Append(entry *models.ProcessingLogEntry) error
}

// MarkerStore persists "already performed" markers for actions that are not
// naturally idempotent, keyed by (email, owner rule, kind).
type MarkerStore interface {
	Seen(emailID, ownerID uint, kind string) (bool, error)
	Mark(emailID, ownerID uint, kind string) error
}

// EmailStore persists processing state mutations back to storage.
type EmailStore interface {
	SaveState(email *models.Email) error
}

// RuleSource lists the enabled routing rules. Rule management itself lives
// with the rule CRUD collaborator; the engine only reads.
type RuleSource interface {
	ListEnabledRules() ([]models.Rule, error)
}
