package domain

import (
	"slices"
	"strings"
)

// Priority represents a card urgency tag used by this package.
type Priority string

// PriorityLow and related constants define package defaults.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// PriorityInfo carries the display metadata attached to one priority tag.
// Rank orders priorities for presentation only; cards keep manual order.
type PriorityInfo struct {
	Label  string
	Rank   int
	Marker string
}

// priorityTable maps each priority to its fixed display metadata.
var priorityTable = map[Priority]PriorityInfo{
	PriorityLow:      {Label: "LOW", Rank: 1, Marker: "(-)"},
	PriorityMedium:   {Label: "MED", Rank: 2, Marker: "(o)"},
	PriorityHigh:     {Label: "HGH", Rank: 3, Marker: "(!)"},
	PriorityCritical: {Label: "CRT", Rank: 4, Marker: "(!!)"},
}

// Valid reports whether the priority is one of the closed tag set.
func (p Priority) Valid() bool {
	return slices.Contains(validPriorities, p)
}

// Info returns the display metadata for the priority.
func (p Priority) Info() PriorityInfo {
	return priorityTable[p]
}

// Rank returns the ordering value (1-4) for the priority.
func (p Priority) Rank() int {
	return priorityTable[p].Rank
}

// NormalizePriority canonicalizes raw priority input and applies the medium default.
func NormalizePriority(raw string) (Priority, error) {
	p := Priority(strings.TrimSpace(strings.ToLower(raw)))
	if p == "" {
		return PriorityMedium, nil
	}
	if !p.Valid() {
		return "", ErrInvalidPriority
	}
	return p, nil
}
