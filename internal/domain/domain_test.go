package domain

import (
	"testing"
	"time"
)

func TestNewBoardNormalizesTitle(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	b, err := NewBoard("b1", "  Launch Project  ", now)
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	if b.Title != "Launch Project" {
		t.Fatalf("unexpected title %q", b.Title)
	}
	if !b.CreatedAt.Equal(now) {
		t.Fatalf("unexpected created_at %v", b.CreatedAt)
	}
	if len(b.Columns) != 0 {
		t.Fatalf("expected empty column list, got %d", len(b.Columns))
	}
}

func TestNewBoardValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewBoard("", "ok", now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewBoard("b1", "   ", now); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestBoardRename(t *testing.T) {
	now := time.Now()
	b, _ := NewBoard("b1", "old", now)
	if err := b.Rename("  new "); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if b.Title != "new" {
		t.Fatalf("unexpected title %q", b.Title)
	}
	if err := b.Rename(" "); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if b.Title != "new" {
		t.Fatalf("failed rename must not touch title, got %q", b.Title)
	}
}

func TestNewColumnDefaultsAndValidation(t *testing.T) {
	c, err := NewColumn("c1", " Backlog ", "", CategoryTodo)
	if err != nil {
		t.Fatalf("NewColumn() error = %v", err)
	}
	if c.Color != DefaultColumnColor {
		t.Fatalf("expected default color, got %q", c.Color)
	}
	if c.Title != "Backlog" {
		t.Fatalf("unexpected title %q", c.Title)
	}

	if _, err := NewColumn("c1", "x", "", Category("later")); err != ErrInvalidCategory {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := NewColumn("c1", "  ", "", CategoryNone); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestColumnClassificationFallback(t *testing.T) {
	cases := []struct {
		name     string
		category Category
		title    string
		done     bool
		progress bool
	}{
		{"tagged done", CategoryDone, "Shipped", true, false},
		{"tagged doing", CategoryDoing, "Anything", false, true},
		{"tagged bugs", CategoryBugs, "Done things", false, false},
		{"legacy done keyword", CategoryNone, "DONE stuff", true, false},
		{"legacy german done", CategoryNone, "Erledigt", true, false},
		{"legacy progress keyword", CategoryNone, "In Progress", false, true},
		{"legacy german progress", CategoryNone, "In Bearbeitung", false, true},
		{"legacy plain", CategoryNone, "Backlog", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			col := Column{ID: "c", Title: tc.title, Category: tc.category}
			if got := col.DoneColumn(); got != tc.done {
				t.Fatalf("DoneColumn() = %t, want %t", got, tc.done)
			}
			if got := col.ProgressColumn(); got != tc.progress {
				t.Fatalf("ProgressColumn() = %t, want %t", got, tc.progress)
			}
		})
	}
}

func TestNewCardDefaultsAndValidation(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	card, err := NewCard("t1", "  Fix login  ", "  details ", "", now)
	if err != nil {
		t.Fatalf("NewCard() error = %v", err)
	}
	if card.Priority != PriorityMedium {
		t.Fatalf("expected default medium, got %q", card.Priority)
	}
	if card.Title != "Fix login" || card.Description != "details" {
		t.Fatalf("unexpected card %#v", card)
	}
	if card.CompletedAt != nil {
		t.Fatal("expected nil completed_at on creation")
	}

	if _, err := NewCard("t1", "x", "", Priority("urgent"), now); err != ErrInvalidPriority {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
	if _, err := NewCard("t1", " ", "", PriorityLow, now); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestCardCompleteAndClear(t *testing.T) {
	now := time.Now()
	card, _ := NewCard("t1", "x", "", PriorityHigh, now)
	card.Complete(now.Add(time.Hour))
	if card.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}
	if !card.Resolved() {
		t.Fatal("expected card to be resolved")
	}
	card.ClearCompletion()
	if card.CompletedAt != nil {
		t.Fatal("expected completed_at to be cleared")
	}
}

func TestPriorityMetadata(t *testing.T) {
	cases := []struct {
		priority Priority
		label    string
		rank     int
		marker   string
	}{
		{PriorityLow, "LOW", 1, "(-)"},
		{PriorityMedium, "MED", 2, "(o)"},
		{PriorityHigh, "HGH", 3, "(!)"},
		{PriorityCritical, "CRT", 4, "(!!)"},
	}
	for _, tc := range cases {
		info := tc.priority.Info()
		if info.Label != tc.label || info.Rank != tc.rank || info.Marker != tc.marker {
			t.Fatalf("unexpected metadata for %q: %#v", tc.priority, info)
		}
	}
}

func TestNormalizePriority(t *testing.T) {
	if p, err := NormalizePriority("  CRITICAL "); err != nil || p != PriorityCritical {
		t.Fatalf("NormalizePriority() = %q, %v", p, err)
	}
	if p, err := NormalizePriority(""); err != nil || p != PriorityMedium {
		t.Fatalf("expected medium default, got %q, %v", p, err)
	}
	if _, err := NormalizePriority("blocker"); err != ErrInvalidPriority {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestNormalizeCategory(t *testing.T) {
	if c, err := NormalizeCategory(" Done "); err != nil || c != CategoryDone {
		t.Fatalf("NormalizeCategory() = %q, %v", c, err)
	}
	if c, err := NormalizeCategory(""); err != nil || c != CategoryNone {
		t.Fatalf("expected empty category, got %q, %v", c, err)
	}
	if _, err := NormalizeCategory("blocked"); err != ErrInvalidCategory {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestBoardCloneIsIndependent(t *testing.T) {
	now := time.Now()
	board, _ := NewBoard("b1", "Board", now)
	col, _ := NewColumn("c1", "To Do", "", CategoryTodo)
	card, _ := NewCard("t1", "Task", "", PriorityLow, now)
	card.Complete(now)
	col.Cards = append(col.Cards, card)
	board.Columns = append(board.Columns, col)

	clone := board.Clone()
	clone.Columns[0].Cards[0].Title = "changed"
	clone.Columns[0].Cards[0].Complete(now.Add(time.Hour))
	clone.Columns = append(clone.Columns, Column{ID: "c2", Title: "More"})

	if board.Columns[0].Cards[0].Title != "Task" {
		t.Fatal("clone mutation leaked into original card title")
	}
	if !board.Columns[0].Cards[0].CompletedAt.Equal(now) {
		t.Fatal("clone mutation leaked into original completed_at")
	}
	if len(board.Columns) != 1 {
		t.Fatal("clone mutation leaked into original column list")
	}
}
