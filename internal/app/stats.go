package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// BoardStats aggregates the derived metrics of one board snapshot.
type BoardStats struct {
	BoardID    string
	Title      string
	StartDate  time.Time
	DaysActive int

	Created    int
	Done       int
	InProgress int
	Bugs       int
	Deleted    int

	SprintProgress     int
	WeeklyThroughput   int
	ResolvedCards      int
	AvgResolutionHours int
}

// BoardStats computes metrics for one board against the current clock.
func (s *Service) BoardStats(ctx context.Context, boardID string) (BoardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.boardRef(boardID)
	if err != nil {
		return BoardStats{}, err
	}
	return ComputeBoardStats(*board, s.deletedCards, s.clock()), nil
}

// ActiveBoardStats computes metrics for the active selection.
func (s *Service) ActiveBoardStats(ctx context.Context) (BoardStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return BoardStats{}, ErrNoActiveBoard
	}
	board, err := s.boardRef(s.activeID)
	if err != nil {
		return BoardStats{}, err
	}
	return ComputeBoardStats(*board, s.deletedCards, s.clock()), nil
}

// ActivityLabel renders the last mutation time as a relative label.
func (s *Service) ActivityLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RelativeActivityLabel(s.lastActivity, s.clock())
}

// ComputeBoardStats derives all board metrics in one pass over the tree.
// It never mutates the board and is deterministic for a fixed now.
func ComputeBoardStats(board domain.Board, deletedCards int, now time.Time) BoardStats {
	start := board.CreatedAt
	if start.IsZero() {
		start = now
	}
	daysActive := int(math.Ceil(now.Sub(start).Hours() / 24))
	if daysActive < 1 {
		daysActive = 1
	}

	present := 0
	done := 0
	inProgress := 0
	bugs := 0
	resolved := 0
	var resolutionTotal time.Duration

	for _, column := range board.Columns {
		present += len(column.Cards)
		if column.DoneColumn() {
			done += len(column.Cards)
		}
		if column.ProgressColumn() {
			inProgress += len(column.Cards)
		}
		bugColumn := column.Category == domain.CategoryBugs
		for _, card := range column.Cards {
			if bugColumn || card.Priority == domain.PriorityCritical {
				bugs++
			}
			if card.Resolved() {
				resolved++
				resolutionTotal += card.CompletedAt.Sub(card.CreatedAt)
			}
		}
	}

	sprint := 0
	if present > 0 {
		sprint = int(math.Round(100 * float64(done) / float64(present)))
	}

	weeks := float64(daysActive) / 7
	if weeks < 1 {
		weeks = 1
	}
	throughput := int(math.Round(float64(done) / weeks))

	avgHours := 0
	if resolved > 0 {
		avgHours = int(math.Round(resolutionTotal.Hours() / float64(resolved)))
	}

	return BoardStats{
		BoardID:            board.ID,
		Title:              board.Title,
		StartDate:          start,
		DaysActive:         daysActive,
		Created:            present + deletedCards,
		Done:               done,
		InProgress:         inProgress,
		Bugs:               bugs,
		Deleted:            deletedCards,
		SprintProgress:     sprint,
		WeeklyThroughput:   throughput,
		ResolvedCards:      resolved,
		AvgResolutionHours: avgHours,
	}
}

// AvgResolutionLabel renders the average resolution time, switching from
// hours to whole days above the one-day mark.
func (st BoardStats) AvgResolutionLabel() string {
	if st.AvgResolutionHours > 24 {
		days := int(math.Round(float64(st.AvgResolutionHours) / 24))
		return fmt.Sprintf("%d days", days)
	}
	return fmt.Sprintf("%d hrs", st.AvgResolutionHours)
}

// RelativeActivityLabel renders the distance between two times as a coarse
// human label, from "just now" up to whole days.
func RelativeActivityLabel(lastActivity, now time.Time) string {
	seconds := int(now.Sub(lastActivity).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return fmt.Sprintf("%d min ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%d hr ago", seconds/3600)
	default:
		return fmt.Sprintf("%d days ago", seconds/86400)
	}
}
