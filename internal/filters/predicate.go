// Package filters evaluates search, severity and status predicates over the
// alert buffer and manages named filter presets.
package filters

import (
	"cmp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/annotations"
)

// Values of Predicate.SeverityFilter and Predicate.StatusFilter that match
// everything.
const (
	AllSeverities = "All"
	AllStatuses   = "all"
)

// SortOrder controls the order of a filtered view.
type SortOrder string

const (
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortSeverity SortOrder = "severity"
)

// SortOrders lists every order in cycle order.
var SortOrders = []SortOrder{SortNewest, SortOldest, SortSeverity}

// Predicate selects and orders alerts.
type Predicate struct {
	SearchQuery    string    `json:"searchQuery"`
	SeverityFilter string    `json:"severityFilter" validate:"required,oneof=All Low Medium High Critical"`
	StatusFilter   string    `json:"statusFilter" validate:"required,oneof=all new reviewed investigating resolved false_positive"`
	SortOrder      SortOrder `json:"sortOrder" validate:"required,oneof=newest oldest severity"`
}

// DefaultPredicate matches every alert, newest first.
func DefaultPredicate() Predicate {
	return Predicate{
		SeverityFilter: AllSeverities,
		StatusFilter:   AllStatuses,
		SortOrder:      SortNewest,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that every field holds a known value.
func (p Predicate) Validate() error {
	return validate.Struct(p)
}

// StatusResolver resolves the annotation status of an alert.
type StatusResolver interface {
	Status(a alerts.Alert) annotations.Status
}

// Matches reports whether a satisfies p. The search query is a
// case-insensitive substring match against description, source IP and
// threat type; an empty query matches everything.
func Matches(a alerts.Alert, p Predicate, resolver StatusResolver) bool {
	if q := strings.TrimSpace(p.SearchQuery); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(a.Description), q) &&
			!strings.Contains(strings.ToLower(a.SourceIP), q) &&
			!strings.Contains(strings.ToLower(a.ThreatType), q) {
			return false
		}
	}

	if p.SeverityFilter != "" && p.SeverityFilter != AllSeverities &&
		p.SeverityFilter != string(a.Severity) {
		return false
	}

	if p.StatusFilter != "" && p.StatusFilter != AllStatuses {
		status := annotations.StatusNew
		if resolver != nil {
			status = resolver.Status(a)
		}
		if string(status) != p.StatusFilter {
			return false
		}
	}

	return true
}

// Apply returns the alerts matching p, sorted by p.SortOrder. The input is
// not modified.
func Apply(list []alerts.Alert, p Predicate, resolver StatusResolver) []alerts.Alert {
	out := make([]alerts.Alert, 0, len(list))
	for _, a := range list {
		if Matches(a, p, resolver) {
			out = append(out, a)
		}
	}
	Sort(out, p.SortOrder)
	return out
}

// Sort orders list in place. Severity order puts Critical first and breaks
// ties newest first. The sort is stable.
func Sort(list []alerts.Alert, order SortOrder) {
	switch order {
	case SortOldest:
		slices.SortStableFunc(list, func(a, b alerts.Alert) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
	case SortSeverity:
		slices.SortStableFunc(list, func(a, b alerts.Alert) int {
			if c := cmp.Compare(alerts.Rank(b.Severity), alerts.Rank(a.Severity)); c != 0 {
				return c
			}
			return b.Timestamp.Compare(a.Timestamp)
		})
	default:
		slices.SortStableFunc(list, func(a, b alerts.Alert) int {
			return b.Timestamp.Compare(a.Timestamp)
		})
	}
}
