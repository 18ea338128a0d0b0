package domain

import (
	"strings"
	"time"
)

// Board represents board data used by this package.
type Board struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Columns   []Column
}

// NewBoard constructs a new value for this package.
func NewBoard(id, title string, now time.Time) (Board, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	if id == "" {
		return Board{}, ErrInvalidID
	}
	if title == "" {
		return Board{}, ErrInvalidTitle
	}

	return Board{
		ID:        id,
		Title:     title,
		CreatedAt: now.UTC(),
		Columns:   []Column{},
	}, nil
}

// Rename replaces the board title. The id and creation stamp are untouched.
func (b *Board) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	b.Title = title
	return nil
}

// ColumnIndex returns the position of a column within the board, or -1.
func (b Board) ColumnIndex(columnID string) int {
	for idx, column := range b.Columns {
		if column.ID == columnID {
			return idx
		}
	}
	return -1
}

// CardCount returns the number of cards currently on the board.
func (b Board) CardCount() int {
	total := 0
	for _, column := range b.Columns {
		total += len(column.Cards)
	}
	return total
}

// Clone returns a structurally independent copy of the board tree.
func (b Board) Clone() Board {
	out := b
	out.Columns = make([]Column, 0, len(b.Columns))
	for _, column := range b.Columns {
		out.Columns = append(out.Columns, column.Clone())
	}
	return out
}

// CloneBoards deep-copies a board list so callers never alias internal state.
func CloneBoards(boards []Board) []Board {
	out := make([]Board, 0, len(boards))
	for _, board := range boards {
		out = append(out, board.Clone())
	}
	return out
}
