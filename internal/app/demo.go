package app

import (
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// demoBoard builds the starter board used when no persisted state exists.
// Callers hold the lock.
func (s *Service) demoBoard(now time.Time) domain.Board {
	board := domain.Board{
		ID:        s.idGen(),
		Title:     "Launch Project",
		CreatedAt: now.UTC(),
	}
	board.Columns = []domain.Column{
		{ID: s.idGen(), Title: "To Do", Color: "slate", Category: domain.CategoryTodo, Cards: []domain.Card{}},
		{ID: s.idGen(), Title: "In Progress", Color: "blue", Category: domain.CategoryDoing, Cards: []domain.Card{}},
		{ID: s.idGen(), Title: "Done", Color: "green", Category: domain.CategoryDone, Cards: []domain.Card{}},
	}
	return board
}
