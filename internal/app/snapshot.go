package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// BoardSnapshot is the wire form of one board. The persisted state file and
// the export document share this shape, so a round-trip is byte-stable.
// Timestamps travel as Unix epoch milliseconds.
type BoardSnapshot struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	CreatedAt int64            `json:"createdAt"`
	Columns   []ColumnSnapshot `json:"columns"`
}

// ColumnSnapshot is the wire form of one column.
type ColumnSnapshot struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Color    string         `json:"color,omitempty"`
	Category string         `json:"category,omitempty"`
	Cards    []CardSnapshot `json:"cards"`
}

// CardSnapshot is the wire form of one card.
type CardSnapshot struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority"`
	CreatedAt   int64  `json:"createdAt"`
	CompletedAt *int64 `json:"completedAt,omitempty"`
}

// SnapshotFromBoards converts the domain tree into its wire form, keeping
// board, column, and card order.
func SnapshotFromBoards(boards []domain.Board) []BoardSnapshot {
	out := make([]BoardSnapshot, 0, len(boards))
	for _, board := range boards {
		bs := BoardSnapshot{
			ID:        board.ID,
			Title:     board.Title,
			CreatedAt: board.CreatedAt.UnixMilli(),
			Columns:   make([]ColumnSnapshot, 0, len(board.Columns)),
		}
		for _, column := range board.Columns {
			bs.Columns = append(bs.Columns, ColumnSnapshotFrom(column))
		}
		out = append(out, bs)
	}
	return out
}

// ColumnSnapshotFrom converts one column into its wire form.
func ColumnSnapshotFrom(column domain.Column) ColumnSnapshot {
	cs := ColumnSnapshot{
		ID:       column.ID,
		Title:    column.Title,
		Color:    column.Color,
		Category: string(column.Category),
		Cards:    make([]CardSnapshot, 0, len(column.Cards)),
	}
	for _, card := range column.Cards {
		cs.Cards = append(cs.Cards, CardSnapshotFrom(card))
	}
	return cs
}

// CardSnapshotFrom converts one card into its wire form.
func CardSnapshotFrom(card domain.Card) CardSnapshot {
	ts := CardSnapshot{
		ID:          card.ID,
		Title:       card.Title,
		Description: card.Description,
		Priority:    string(card.Priority),
		CreatedAt:   card.CreatedAt.UnixMilli(),
	}
	if card.CompletedAt != nil {
		ms := card.CompletedAt.UnixMilli()
		ts.CompletedAt = &ms
	}
	return ts
}

// ValidateSnapshot checks structural requirements before a snapshot is
// accepted into the tree. Errors name the offending element by index.
func ValidateSnapshot(boards []BoardSnapshot) error {
	for i, board := range boards {
		if strings.TrimSpace(board.ID) == "" {
			return fmt.Errorf("boards[%d].id is required", i)
		}
		if strings.TrimSpace(board.Title) == "" {
			return fmt.Errorf("boards[%d].title is required", i)
		}
		for j, column := range board.Columns {
			if strings.TrimSpace(column.ID) == "" {
				return fmt.Errorf("boards[%d].columns[%d].id is required", i, j)
			}
			if strings.TrimSpace(column.Title) == "" {
				return fmt.Errorf("boards[%d].columns[%d].title is required", i, j)
			}
			if _, err := domain.NormalizeCategory(column.Category); err != nil {
				return fmt.Errorf("boards[%d].columns[%d].category %q is not recognized", i, j, column.Category)
			}
			for k, card := range column.Cards {
				if strings.TrimSpace(card.ID) == "" {
					return fmt.Errorf("boards[%d].columns[%d].cards[%d].id is required", i, j, k)
				}
				if strings.TrimSpace(card.Title) == "" {
					return fmt.Errorf("boards[%d].columns[%d].cards[%d].title is required", i, j, k)
				}
				if _, err := domain.NormalizePriority(card.Priority); err != nil {
					return fmt.Errorf("boards[%d].columns[%d].cards[%d].priority %q is not recognized", i, j, k, card.Priority)
				}
			}
		}
	}
	return nil
}

// BoardsFromSnapshot converts the wire form back into the domain tree.
// It validates first and returns without side effects on bad input.
func BoardsFromSnapshot(boards []BoardSnapshot) ([]domain.Board, error) {
	if err := ValidateSnapshot(boards); err != nil {
		return nil, err
	}

	out := make([]domain.Board, 0, len(boards))
	for _, bs := range boards {
		board := domain.Board{
			ID:        strings.TrimSpace(bs.ID),
			Title:     strings.TrimSpace(bs.Title),
			CreatedAt: timeFromMillis(bs.CreatedAt),
			Columns:   make([]domain.Column, 0, len(bs.Columns)),
		}
		for _, cs := range bs.Columns {
			category, _ := domain.NormalizeCategory(cs.Category)
			color := strings.TrimSpace(cs.Color)
			if color == "" {
				color = domain.DefaultColumnColor
			}
			column := domain.Column{
				ID:       strings.TrimSpace(cs.ID),
				Title:    strings.TrimSpace(cs.Title),
				Color:    color,
				Category: category,
				Cards:    make([]domain.Card, 0, len(cs.Cards)),
			}
			for _, ts := range cs.Cards {
				priority, _ := domain.NormalizePriority(ts.Priority)
				card := domain.Card{
					ID:          strings.TrimSpace(ts.ID),
					Title:       strings.TrimSpace(ts.Title),
					Description: strings.TrimSpace(ts.Description),
					Priority:    priority,
					CreatedAt:   timeFromMillis(ts.CreatedAt),
				}
				if ts.CompletedAt != nil {
					completed := timeFromMillis(*ts.CompletedAt)
					card.CompletedAt = &completed
				}
				column.Cards = append(column.Cards, card)
			}
			board.Columns = append(board.Columns, column)
		}
		out = append(out, board)
	}
	return out, nil
}

// ExportState renders the full board tree as an indented JSON document.
func (s *Service) ExportState() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(SnapshotFromBoards(s.boards), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// ImportState replaces the full board tree with the given JSON document and
// selects the first imported board. Malformed or invalid documents leave the
// existing tree untouched. It returns the number of imported boards.
func (s *Service) ImportState(ctx context.Context, data []byte) (int, error) {
	var snapshot []BoardSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return 0, fmt.Errorf("decode state: %w", err)
	}
	boards, err := BoardsFromSnapshot(snapshot)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.boards = boards
	s.activeID = ""
	if len(boards) > 0 {
		s.activeID = boards[0].ID
	}
	s.drag = dragSession{}
	s.touchAndPersist(ctx)
	return len(boards), nil
}

func timeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
