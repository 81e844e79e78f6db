// Package annotations records the operator's triage status for alerts.
package annotations

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nixlim/ids-top/internal/alerts"
)

// Status is an operator's triage state for an alert.
type Status string

const (
	StatusNew           Status = "new"
	StatusReviewed      Status = "reviewed"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusNew, StatusReviewed, StatusInvestigating, StatusResolved, StatusFalsePositive}

// ErrInvalidStatus is returned when a status is not one of Statuses.
var ErrInvalidStatus = errors.New("annotations: invalid status")

// Annotation is the stored triage record. AlertID is the id of the alert the
// operator acted on, which under the class policy may differ from the alert
// the annotation is later resolved for.
type Annotation struct {
	AlertID        string    `json:"alertId" validate:"required"`
	Status         Status    `json:"status" validate:"required,oneof=new reviewed investigating resolved false_positive"`
	AcknowledgedAt time.Time `json:"acknowledgedAt"`
	Notes          string    `json:"notes,omitempty"`
}

// Label returns the human-readable form of s.
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusReviewed:
		return "Reviewed"
	case StatusInvestigating:
		return "Investigating"
	case StatusResolved:
		return "Resolved"
	case StatusFalsePositive:
		return "False Positive"
	}
	return string(s)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return validate.Var(string(s), "required,oneof=new reviewed investigating resolved false_positive") == nil
}

// KeyFunc derives the annotation key of an alert.
type KeyFunc func(alerts.Alert) string

// ClassKey keys annotations by source and threat type, so a status set on
// one alert applies to every alert from the same source with the same
// threat type, including ones that arrive later.
func ClassKey(a alerts.Alert) string {
	return a.SourceIP + "-" + a.ThreatType
}

// OccurrenceKey keys annotations by alert id.
func OccurrenceKey(a alerts.Alert) string {
	return a.ID
}

// KeyFuncFor returns the KeyFunc for a configured key policy. Unknown
// policies fall back to ClassKey.
func KeyFuncFor(policy string) KeyFunc {
	if policy == "occurrence" {
		return OccurrenceKey
	}
	return ClassKey
}
