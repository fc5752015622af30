package models

import (
	"gorm.io/gorm"
)

// ConditionField identifies which email attribute a condition inspects.
type ConditionField string

const (
	FieldSenderCategory  ConditionField = "sender_category"
	FieldSender          ConditionField = "sender"
	FieldSubject         ConditionField = "subject"
	FieldBody            ConditionField = "body"
	FieldRecipientCount  ConditionField = "recipient_count"
	FieldAttachmentCount ConditionField = "attachment_count"
	FieldSize            ConditionField = "size"
)

// ConditionOperator is the comparison applied to the field.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"       // sender, sender_category
	OperatorContainsAny ConditionOperator = "contains_any" // subject, body keyword lists
	OperatorGT          ConditionOperator = "gt"
	OperatorGTE         ConditionOperator = "gte"
	OperatorLT          ConditionOperator = "lt"
	OperatorLTE         ConditionOperator = "lte"
	OperatorEQ          ConditionOperator = "eq"
)

// RuleCondition is one condition on a rule. Which parameter field is
// meaningful depends on Field: Value for equality matches, Keywords for
// subject/body keyword lists (OR within the list), Amount for the numeric
// comparators. Conditions on a rule are AND-ed.
type RuleCondition struct {
	Field    ConditionField    `json:"field" validate:"required,oneof=sender_category sender subject body recipient_count attachment_count size"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=equals contains_any gt gte lt lte eq"`
	Value    string            `json:"value,omitempty"`
	Keywords []string          `json:"keywords,omitempty"`
	Amount   int64             `json:"amount,omitempty"`
}

// ConditionList is stored as a JSON column on the owning rule.
type ConditionList []RuleCondition

// ActionType enumerates the routing actions a rule can apply.
type ActionType string

const (
	ActionMarkPriority    ActionType = "mark_priority"
	ActionFilter          ActionType = "filter"
	ActionMarkRead        ActionType = "mark_read"
	ActionForward         ActionType = "forward"
	ActionClassify        ActionType = "classify"
	ActionArchive         ActionType = "archive"
	ActionRegisterMeeting ActionType = "register_meeting"
	ActionRemind          ActionType = "remind"
)

// Filter destinations
const (
	FilterTrash      = "trash"
	FilterDelete     = "delete"
	FilterQuarantine = "quarantine"
)

// RuleAction is one action in a rule's ordered action list. Parameter
// fields follow the same variant convention as RuleCondition.
type RuleAction struct {
	Type            ActionType `json:"type" validate:"required,oneof=mark_priority filter mark_read forward classify archive register_meeting remind"`
	Priority        string     `json:"priority,omitempty"`    // mark_priority: none|high
	Destination     string     `json:"destination,omitempty"` // filter: trash|delete|quarantine
	Target          string     `json:"target,omitempty"`      // forward: recipient address
	Folder          string     `json:"folder,omitempty"`      // classify, archive
	CalendarRef     string     `json:"calendar_ref,omitempty"`
	IntervalMinutes int        `json:"interval_minutes,omitempty"` // remind
}

// ActionList is stored as a JSON column on the owning rule.
type ActionList []RuleAction

// Rule is a routing rule: when every condition holds for an email, the
// actions run in order. Higher Priority rules run first when several rules
// match the same email; ties break by ascending ID so repeated runs stay
// deterministic. A rule with no conditions never matches.
type Rule struct {
	gorm.Model
	Name       string        `gorm:"not null" json:"name"`
	Conditions ConditionList `gorm:"serializer:json" json:"conditions"`
	Actions    ActionList    `gorm:"serializer:json" json:"actions"`
	Enabled    bool          `gorm:"default:true;index" json:"enabled"`
	Priority   int           `gorm:"default:0" json:"priority"`
}
