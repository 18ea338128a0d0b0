package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Store persists the board tree in a SQLite database. Saves replace the
// whole tree in one transaction, matching the document semantics of the
// app.Store port.
type Store struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the requested operation.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate handles migrate.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS boards (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS columns (
			id TEXT PRIMARY KEY,
			board_id TEXT NOT NULL,
			title TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			FOREIGN KEY(board_id) REFERENCES boards(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			column_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			completed_at INTEGER,
			position INTEGER NOT NULL,
			FOREIGN KEY(column_id) REFERENCES columns(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_columns_board_position ON columns(board_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_cards_column_position ON cards(column_id, position);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// Load reads the full board tree in position order. It returns
// app.ErrNoState when the database holds no boards.
func (s *Store) Load(ctx context.Context) ([]domain.Board, error) {
	boards, boardOrder, err := s.loadBoards(ctx)
	if err != nil {
		return nil, err
	}
	if len(boardOrder) == 0 {
		return nil, app.ErrNoState
	}

	columnBoard, err := s.loadColumns(ctx, boards)
	if err != nil {
		return nil, err
	}
	if err := s.loadCards(ctx, boards, columnBoard); err != nil {
		return nil, err
	}

	out := make([]domain.Board, 0, len(boardOrder))
	for _, id := range boardOrder {
		out = append(out, *boards[id])
	}
	return out, nil
}

// Save replaces the persisted tree inside one transaction.
func (s *Store) Save(ctx context.Context, boards []domain.Board) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"cards", "columns", "boards"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for bi, board := range boards {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO boards(id, title, created_at, position)
			VALUES (?, ?, ?, ?)
		`, board.ID, board.Title, board.CreatedAt.UnixMilli(), bi)
		if err != nil {
			return fmt.Errorf("insert board: %w", err)
		}
		for ci, column := range board.Columns {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO columns(id, board_id, title, color, category, position)
				VALUES (?, ?, ?, ?, ?, ?)
			`, column.ID, board.ID, column.Title, column.Color, string(column.Category), ci)
			if err != nil {
				return fmt.Errorf("insert column: %w", err)
			}
			for ti, card := range column.Cards {
				_, err = tx.ExecContext(ctx, `
					INSERT INTO cards(id, column_id, title, description, priority, created_at, completed_at, position)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				`, card.ID, column.ID, card.Title, card.Description, string(card.Priority), card.CreatedAt.UnixMilli(), nullableMillis(card.CompletedAt), ti)
				if err != nil {
					return fmt.Errorf("insert card: %w", err)
				}
			}
		}
	}

	err = tx.Commit()
	return err
}

// loadBoards reads board rows and returns them keyed by id plus their order.
func (s *Store) loadBoards(ctx context.Context) (map[string]*domain.Board, []string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at
		FROM boards
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	boards := map[string]*domain.Board{}
	order := []string{}
	for rows.Next() {
		var (
			board     domain.Board
			createdMS int64
		)
		if err := rows.Scan(&board.ID, &board.Title, &createdMS); err != nil {
			return nil, nil, err
		}
		board.CreatedAt = time.UnixMilli(createdMS).UTC()
		board.Columns = []domain.Column{}
		boards[board.ID] = &board
		order = append(order, board.ID)
	}
	return boards, order, rows.Err()
}

// loadColumns attaches column rows to their boards in position order and
// returns a column-to-board index.
func (s *Store) loadColumns(ctx context.Context, boards map[string]*domain.Board) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, title, color, category
		FROM columns
		ORDER BY board_id ASC, position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columnBoard := map[string]string{}
	for rows.Next() {
		var (
			column  domain.Column
			boardID string
			rawCat  string
		)
		if err := rows.Scan(&column.ID, &boardID, &column.Title, &column.Color, &rawCat); err != nil {
			return nil, err
		}
		column.Category = domain.Category(rawCat)
		column.Cards = []domain.Card{}
		board, ok := boards[boardID]
		if !ok {
			return nil, fmt.Errorf("column %s references unknown board %s", column.ID, boardID)
		}
		board.Columns = append(board.Columns, column)
		columnBoard[column.ID] = boardID
	}
	return columnBoard, rows.Err()
}

// loadCards attaches card rows to their columns in position order.
func (s *Store) loadCards(ctx context.Context, boards map[string]*domain.Board, columnBoard map[string]string) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, column_id, title, description, priority, created_at, completed_at
		FROM cards
		ORDER BY column_id ASC, position ASC
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			card        domain.Card
			columnID    string
			rawPriority string
			createdMS   int64
			completedMS sql.NullInt64
		)
		if err := rows.Scan(&card.ID, &columnID, &card.Title, &card.Description, &rawPriority, &createdMS, &completedMS); err != nil {
			return err
		}
		card.Priority = domain.Priority(rawPriority)
		card.CreatedAt = time.UnixMilli(createdMS).UTC()
		if completedMS.Valid {
			completed := time.UnixMilli(completedMS.Int64).UTC()
			card.CompletedAt = &completed
		}

		boardID, ok := columnBoard[columnID]
		if !ok {
			return fmt.Errorf("card %s references unknown column %s", card.ID, columnID)
		}
		board := boards[boardID]
		idx := board.ColumnIndex(columnID)
		if idx < 0 {
			return fmt.Errorf("card %s references unknown column %s", card.ID, columnID)
		}
		board.Columns[idx].Cards = append(board.Columns[idx].Cards, card)
	}
	return rows.Err()
}

// nullableMillis handles nullable millis.
func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}
