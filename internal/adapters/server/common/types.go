// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// BoardService captures the board operations exposed to transport adapters.
// *app.Service satisfies it.
type BoardService interface {
	Boards(ctx context.Context) []domain.Board
	Board(ctx context.Context, boardID string) (domain.Board, error)
	CreateBoard(ctx context.Context, title string) (domain.Board, error)
	RenameBoard(ctx context.Context, boardID, title string) (domain.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error
	SelectBoard(boardID string) error
	ActiveBoardID() string

	CreateColumn(ctx context.Context, boardID, title, color string, category domain.Category) (domain.Column, error)
	UpdateColumn(ctx context.Context, boardID, columnID, title, color string, category domain.Category) (domain.Column, error)
	DeleteColumn(ctx context.Context, boardID, columnID string) error

	CreateCard(ctx context.Context, boardID, columnID, title, description string, priority domain.Priority) (domain.Card, error)
	UpdateCard(ctx context.Context, boardID, columnID, cardID, title, description string, priority domain.Priority) (domain.Card, error)
	DeleteCard(ctx context.Context, boardID, columnID, cardID string) error

	MoveCard(ctx context.Context, boardID, sourceColumnID, cardID, targetColumnID string, targetIndex int) error
	MoveColumn(ctx context.Context, boardID, sourceColumnID, targetColumnID string) error

	BoardStats(ctx context.Context, boardID string) (app.BoardStats, error)
	ExportState() ([]byte, error)
	ImportState(ctx context.Context, data []byte) (int, error)
}

// StatsPayload is the wire form of board statistics shared by transports.
type StatsPayload struct {
	BoardID            string    `json:"board_id"`
	Title              string    `json:"title"`
	StartDate          time.Time `json:"start_date"`
	DaysActive         int       `json:"days_active"`
	Created            int       `json:"created"`
	Done               int       `json:"done"`
	InProgress         int       `json:"in_progress"`
	Bugs               int       `json:"bugs"`
	Deleted            int       `json:"deleted"`
	SprintProgress     int       `json:"sprint_progress"`
	WeeklyThroughput   int       `json:"weekly_throughput"`
	ResolvedCards      int       `json:"resolved_cards"`
	AvgResolutionHours int       `json:"avg_resolution_hours"`
	AvgResolutionLabel string    `json:"avg_resolution_label"`
}

// StatsPayloadFrom converts computed stats into their wire form.
func StatsPayloadFrom(stats app.BoardStats) StatsPayload {
	return StatsPayload{
		BoardID:            stats.BoardID,
		Title:              stats.Title,
		StartDate:          stats.StartDate,
		DaysActive:         stats.DaysActive,
		Created:            stats.Created,
		Done:               stats.Done,
		InProgress:         stats.InProgress,
		Bugs:               stats.Bugs,
		Deleted:            stats.Deleted,
		SprintProgress:     stats.SprintProgress,
		WeeklyThroughput:   stats.WeeklyThroughput,
		ResolvedCards:      stats.ResolvedCards,
		AvgResolutionHours: stats.AvgResolutionHours,
		AvgResolutionLabel: stats.AvgResolutionLabel(),
	}
}

// BoardPayload converts one board into its wire form.
func BoardPayload(board domain.Board) app.BoardSnapshot {
	snapshots := app.SnapshotFromBoards([]domain.Board{board})
	return snapshots[0]
}

// BoardsPayload converts a board list into its wire form.
func BoardsPayload(boards []domain.Board) []app.BoardSnapshot {
	return app.SnapshotFromBoards(boards)
}

// ColumnPayload converts one column into its wire form.
func ColumnPayload(column domain.Column) app.ColumnSnapshot {
	return app.ColumnSnapshotFrom(column)
}

// CardPayload converts one card into its wire form.
func CardPayload(card domain.Card) app.CardSnapshot {
	return app.CardSnapshotFrom(card)
}
