package domain

import (
	"strings"
)

// DefaultColumnColor defines the color applied when a column is created without one.
const DefaultColumnColor = "slate"

// Column represents column data used by this package.
type Column struct {
	ID       string
	Title    string
	Color    string
	Category Category
	Cards    []Card
}

// NewColumn constructs a new value for this package.
func NewColumn(id, title, color string, category Category) (Column, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	color = strings.TrimSpace(color)
	if id == "" {
		return Column{}, ErrInvalidID
	}
	if title == "" {
		return Column{}, ErrInvalidTitle
	}
	if color == "" {
		color = DefaultColumnColor
	}
	if !category.Valid() {
		return Column{}, ErrInvalidCategory
	}

	return Column{
		ID:       id,
		Title:    title,
		Color:    color,
		Category: category,
		Cards:    []Card{},
	}, nil
}

// Update updates title, color, and category in place; cards keep their order.
func (c *Column) Update(title, color string, category Category) error {
	title = strings.TrimSpace(title)
	color = strings.TrimSpace(color)
	if title == "" {
		return ErrInvalidTitle
	}
	if !category.Valid() {
		return ErrInvalidCategory
	}
	if color == "" {
		color = DefaultColumnColor
	}
	c.Title = title
	c.Color = color
	c.Category = category
	return nil
}

// DoneColumn classifies the column as done, falling back to title keywords
// for legacy columns without a category tag.
func (c Column) DoneColumn() bool {
	if c.Category == CategoryDone {
		return true
	}
	return c.Category == CategoryNone && titleContainsAny(c.Title, doneTitleKeywords)
}

// ProgressColumn classifies the column as in-progress, with the same
// legacy title fallback as DoneColumn.
func (c Column) ProgressColumn() bool {
	if c.Category == CategoryDoing {
		return true
	}
	return c.Category == CategoryNone && titleContainsAny(c.Title, progressTitleKeywords)
}

// CardIndex returns the position of a card within the column, or -1.
func (c Column) CardIndex(cardID string) int {
	for idx, card := range c.Cards {
		if card.ID == cardID {
			return idx
		}
	}
	return -1
}

// Clone returns a structurally independent copy of the column and its cards.
func (c Column) Clone() Column {
	out := c
	out.Cards = make([]Card, 0, len(c.Cards))
	for _, card := range c.Cards {
		out.Cards = append(out.Cards, card.Clone())
	}
	return out
}
