package filters

import (
	"strings"
	"time"

	"github.com/nixlim/ids-top/internal/alerts"
	"github.com/nixlim/ids-top/internal/annotations"
)

const defaultIDPrefix = "default-"

// SavedFilter is a named predicate. Default filters are built in and cannot
// be changed.
type SavedFilter struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,max=64"`
	Description string    `json:"description,omitempty" validate:"max=256"`
	CreatedAt   time.Time `json:"createdAt"`
	Color       string    `json:"color,omitempty" validate:"omitempty,hexcolor"`
	IsDefault   bool      `json:"isDefault"`

	Predicate
}

// Validate checks the filter's name, color and predicate.
func (f SavedFilter) Validate() error {
	return validate.Struct(f)
}

// IsDefaultID reports whether id names a built-in filter.
func IsDefaultID(id string) bool {
	return strings.HasPrefix(id, defaultIDPrefix)
}

// DefaultFilters returns a fresh copy of the built-in filters.
func DefaultFilters() []SavedFilter {
	return []SavedFilter{
		{
			ID:          defaultIDPrefix + "critical",
			Name:        "Critical Threats",
			Description: "All critical severity alerts",
			Predicate: Predicate{
				SeverityFilter: string(alerts.SeverityCritical),
				StatusFilter:   AllStatuses,
				SortOrder:      SortNewest,
			},
			Color:     "#dc2626",
			IsDefault: true,
		},
		{
			ID:          defaultIDPrefix + "unreviewed",
			Name:        "Unreviewed",
			Description: "Alerts nobody has triaged yet",
			Predicate: Predicate{
				SeverityFilter: AllSeverities,
				StatusFilter:   string(annotations.StatusNew),
				SortOrder:      SortSeverity,
			},
			Color:     "#2563eb",
			IsDefault: true,
		},
		{
			ID:          defaultIDPrefix + "investigating",
			Name:        "Under Investigation",
			Description: "Alerts currently being investigated",
			Predicate: Predicate{
				SeverityFilter: AllSeverities,
				StatusFilter:   string(annotations.StatusInvestigating),
				SortOrder:      SortNewest,
			},
			Color:     "#d97706",
			IsDefault: true,
		},
		{
			ID:          defaultIDPrefix + "false-positives",
			Name:        "False Positives",
			Description: "Alerts marked as false positives",
			Predicate: Predicate{
				SeverityFilter: AllSeverities,
				StatusFilter:   string(annotations.StatusFalsePositive),
				SortOrder:      SortNewest,
			},
			Color:     "#6b7280",
			IsDefault: true,
		},
	}
}
