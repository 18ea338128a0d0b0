package domain

import (
	"strings"
	"time"
)

// Card represents card data used by this package.
type Card struct {
	ID          string
	Title       string
	Description string
	Priority    Priority
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// NewCard constructs a new value for this package.
func NewCard(id, title, description string, priority Priority, now time.Time) (Card, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	if id == "" {
		return Card{}, ErrInvalidID
	}
	if title == "" {
		return Card{}, ErrInvalidTitle
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return Card{}, ErrInvalidPriority
	}

	return Card{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(description),
		Priority:    priority,
		CreatedAt:   now.UTC(),
	}, nil
}

// UpdateDetails updates the editable fields and leaves id and timestamps untouched.
func (c *Card) UpdateDetails(title, description string, priority Priority) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return ErrInvalidPriority
	}
	c.Title = title
	c.Description = strings.TrimSpace(description)
	c.Priority = priority
	return nil
}

// Complete stamps the card as resolved.
func (c *Card) Complete(now time.Time) {
	ts := now.UTC()
	c.CompletedAt = &ts
}

// ClearCompletion removes the resolution stamp.
func (c *Card) ClearCompletion() {
	c.CompletedAt = nil
}

// Resolved reports whether the card carries both creation and completion stamps.
func (c Card) Resolved() bool {
	return !c.CreatedAt.IsZero() && c.CompletedAt != nil
}

// Clone returns a structurally independent copy of the card.
func (c Card) Clone() Card {
	out := c
	if c.CompletedAt != nil {
		ts := *c.CompletedAt
		out.CompletedAt = &ts
	}
	return out
}
