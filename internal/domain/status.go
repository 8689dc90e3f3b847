package domain

import (
	"slices"
	"strings"
)

// Status identifies the list category of one watch record.
type Status string

// Status values reported by the catalog.
const (
	StatusWatching    Status = "watching"
	StatusCompleted   Status = "completed"
	StatusPlanToWatch Status = "plan_to_watch"
	StatusOnHold      Status = "on_hold"
	StatusDropped     Status = "dropped"
)

// validStatuses stores all known status values in catalog order.
var validStatuses = []Status{
	StatusWatching,
	StatusCompleted,
	StatusPlanToWatch,
	StatusOnHold,
	StatusDropped,
}

// NormalizeStatus trims and lowercases a raw status literal.
func NormalizeStatus(raw string) Status {
	return Status(strings.TrimSpace(strings.ToLower(raw)))
}

// IsValidStatus reports whether status is one of the known list categories.
func IsValidStatus(status Status) bool {
	return slices.Contains(validStatuses, status)
}

// Statuses returns all known status values.
func Statuses() []Status {
	return append([]Status(nil), validStatuses...)
}
