package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	// SeedDemo controls whether an empty or unreadable state is replaced
	// with the generated demo board instead of an empty board list.
	SeedDemo bool
}

// Service owns the canonical board tree and serializes every mutation.
// Mutations validate first and leave state untouched on failure; successful
// mutations persist best-effort and stamp the last-activity time.
type Service struct {
	mu       sync.Mutex
	store    Store
	idGen    IDGenerator
	clock    Clock
	logger   Logger
	seedDemo bool

	boards       []domain.Board
	activeID     string
	deletedCards int
	lastActivity time.Time
	drag         dragSession
}

// NewService constructs a new value for this package.
func NewService(store Store, idGen IDGenerator, clock Clock, logger Logger, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = NopLogger()
	}

	return &Service{
		store:    store,
		idGen:    idGen,
		clock:    clock,
		logger:   logger,
		seedDemo: cfg.SeedDemo,
	}
}

// Load initializes the in-memory tree from the store. Missing or unreadable
// state falls back to the demo board; startup never fails on bad data.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	var boards []domain.Board
	if s.store != nil {
		loaded, err := s.store.Load(ctx)
		switch {
		case err == nil:
			boards = loaded
		case errors.Is(err, ErrNoState):
			s.logger.Info("no persisted state found")
		default:
			s.logger.Warn("state load failed, discarding persisted state", "err", err)
		}
	}
	if len(boards) == 0 && s.seedDemo {
		boards = []domain.Board{s.demoBoard(now)}
		s.logger.Info("seeded demo board", "board_id", boards[0].ID)
	}

	s.boards = boards
	s.activeID = ""
	if len(boards) > 0 {
		s.activeID = boards[0].ID
	}
	s.lastActivity = now.UTC()
}

// CreateBoard creates board and makes it the active selection.
func (s *Service) CreateBoard(ctx context.Context, title string) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := domain.NewBoard(s.idGen(), title, s.clock())
	if err != nil {
		return domain.Board{}, err
	}
	s.boards = append(s.boards, board)
	s.activeID = board.ID
	s.touchAndPersist(ctx)
	return board.Clone(), nil
}

// RenameBoard renames board, preserving id, creation stamp, and columns.
func (s *Service) RenameBoard(ctx context.Context, boardID, title string) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.boardRef(boardID)
	if err != nil {
		return domain.Board{}, err
	}
	if err := board.Rename(title); err != nil {
		return domain.Board{}, err
	}
	s.touchAndPersist(ctx)
	return board.Clone(), nil
}

// DeleteBoard deletes board. The active selection falls back to the first
// remaining board, or to none when no boards remain.
func (s *Service) DeleteBoard(ctx context.Context, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.boardIndex(boardID)
	if idx < 0 {
		return ErrNotFound
	}
	s.boards = slices.Delete(s.boards, idx, idx+1)
	if s.activeID == boardID {
		s.activeID = ""
		if len(s.boards) > 0 {
			s.activeID = s.boards[0].ID
		}
	}
	s.touchAndPersist(ctx)
	return nil
}

// CreateColumn creates column at the end of the board's column sequence.
func (s *Service) CreateColumn(ctx context.Context, boardID, title, color string, category domain.Category) (domain.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.boardRef(boardID)
	if err != nil {
		return domain.Column{}, err
	}
	column, err := domain.NewColumn(s.idGen(), title, color, category)
	if err != nil {
		return domain.Column{}, err
	}
	board.Columns = append(board.Columns, column)
	s.touchAndPersist(ctx)
	return column.Clone(), nil
}

// UpdateColumn updates title, color, and category of one column in place.
func (s *Service) UpdateColumn(ctx context.Context, boardID, columnID, title, color string, category domain.Category) (domain.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	column, err := s.columnRef(boardID, columnID)
	if err != nil {
		return domain.Column{}, err
	}
	if err := column.Update(title, color, category); err != nil {
		return domain.Column{}, err
	}
	s.touchAndPersist(ctx)
	return column.Clone(), nil
}

// DeleteColumn deletes column and all cards within it. Removed cards count
// toward the deleted-card counter so lifetime totals stay consistent with
// single-card deletion.
func (s *Service) DeleteColumn(ctx context.Context, boardID, columnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.boardRef(boardID)
	if err != nil {
		return err
	}
	idx := board.ColumnIndex(columnID)
	if idx < 0 {
		return ErrNotFound
	}
	s.deletedCards += len(board.Columns[idx].Cards)
	board.Columns = slices.Delete(board.Columns, idx, idx+1)
	s.touchAndPersist(ctx)
	return nil
}

// CreateCard creates card at the end of the column's card sequence.
func (s *Service) CreateCard(ctx context.Context, boardID, columnID, title, description string, priority domain.Priority) (domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	column, err := s.columnRef(boardID, columnID)
	if err != nil {
		return domain.Card{}, err
	}
	card, err := domain.NewCard(s.idGen(), title, description, priority, s.clock())
	if err != nil {
		return domain.Card{}, err
	}
	column.Cards = append(column.Cards, card)
	s.touchAndPersist(ctx)
	return card.Clone(), nil
}

// UpdateCard updates the editable card fields; id and timestamps are untouched.
func (s *Service) UpdateCard(ctx context.Context, boardID, columnID, cardID, title, description string, priority domain.Priority) (domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	column, err := s.columnRef(boardID, columnID)
	if err != nil {
		return domain.Card{}, err
	}
	idx := column.CardIndex(cardID)
	if idx < 0 {
		return domain.Card{}, ErrNotFound
	}
	card := &column.Cards[idx]
	if err := card.UpdateDetails(title, description, priority); err != nil {
		return domain.Card{}, err
	}
	s.touchAndPersist(ctx)
	return card.Clone(), nil
}

// DeleteCard deletes card and increments the deleted-card counter.
func (s *Service) DeleteCard(ctx context.Context, boardID, columnID, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	column, err := s.columnRef(boardID, columnID)
	if err != nil {
		return err
	}
	idx := column.CardIndex(cardID)
	if idx < 0 {
		return ErrNotFound
	}
	column.Cards = slices.Delete(column.Cards, idx, idx+1)
	s.deletedCards++
	s.touchAndPersist(ctx)
	return nil
}

// Boards lists all boards as structurally independent copies.
func (s *Service) Boards(ctx context.Context) []domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneBoards(s.boards)
}

// Board returns one board by id.
func (s *Service) Board(ctx context.Context, boardID string) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.boardRef(boardID)
	if err != nil {
		return domain.Board{}, err
	}
	return board.Clone(), nil
}

// ActiveBoard returns the currently selected board.
func (s *Service) ActiveBoard(ctx context.Context) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return domain.Board{}, ErrNoActiveBoard
	}
	board, err := s.boardRef(s.activeID)
	if err != nil {
		return domain.Board{}, err
	}
	return board.Clone(), nil
}

// SelectBoard changes the active selection.
func (s *Service) SelectBoard(boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.boardIndex(boardID) < 0 {
		return ErrNotFound
	}
	s.activeID = boardID
	return nil
}

// ActiveBoardID returns the id of the active selection, or empty.
func (s *Service) ActiveBoardID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// DeletedCards returns the cumulative deleted-card counter for this session.
func (s *Service) DeletedCards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletedCards
}

// LastActivity returns the timestamp of the most recent mutation.
func (s *Service) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// touchAndPersist stamps activity and writes the tree through the store.
// Persistence is best-effort: the in-memory tree stays authoritative for
// the session and save failures are only logged. Callers hold the lock.
func (s *Service) touchAndPersist(ctx context.Context) {
	s.lastActivity = s.clock().UTC()
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, domain.CloneBoards(s.boards)); err != nil {
		s.logger.Warn("state save failed", "boards", len(s.boards), "err", err)
	}
}

// boardIndex locates a board in the tree. Callers hold the lock.
func (s *Service) boardIndex(boardID string) int {
	for idx := range s.boards {
		if s.boards[idx].ID == boardID {
			return idx
		}
	}
	return -1
}

// boardRef returns a mutable reference into the tree. Callers hold the lock.
func (s *Service) boardRef(boardID string) (*domain.Board, error) {
	idx := s.boardIndex(boardID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return &s.boards[idx], nil
}

// columnRef returns a mutable column reference. Callers hold the lock.
func (s *Service) columnRef(boardID, columnID string) (*domain.Column, error) {
	board, err := s.boardRef(boardID)
	if err != nil {
		return nil, err
	}
	idx := board.ColumnIndex(columnID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return &board.Columns[idx], nil
}
