package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hylla/tavla/internal/domain"
)

type fakeStore struct {
	boards  []domain.Board
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Load(ctx context.Context) ([]domain.Board, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.boards == nil {
		return nil, ErrNoState
	}
	return domain.CloneBoards(f.boards), nil
}

func (f *fakeStore) Save(ctx context.Context, boards []domain.Board) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.boards = boards
	f.saves++
	return nil
}

func sequentialIDs(prefix string) IDGenerator {
	next := 0
	return func() string {
		next++
		return fmt.Sprintf("%s-%d", prefix, next)
	}
}

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

var testStart = time.Date(2026, 2, 21, 9, 30, 0, 0, time.UTC)

// newTestService builds a loaded service with one board, two columns, and
// two cards in the first column.
func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	ctx := context.Background()
	store := &fakeStore{}
	svc := NewService(store, sequentialIDs("id"), fixedClock(testStart), nil, ServiceConfig{})
	svc.Load(ctx)

	board, err := svc.CreateBoard(ctx, "Release")
	if err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if _, err := svc.CreateColumn(ctx, board.ID, "To Do", "slate", domain.CategoryTodo); err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	if _, err := svc.CreateColumn(ctx, board.ID, "Done", "green", domain.CategoryDone); err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	if _, err := svc.CreateCard(ctx, board.ID, "id-2", "Write docs", "", domain.PriorityLow); err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	if _, err := svc.CreateCard(ctx, board.ID, "id-2", "Fix login", "crash on empty password", domain.PriorityCritical); err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	return svc, store
}

func TestLoadSeedsDemoBoardWhenEmpty(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&fakeStore{}, sequentialIDs("id"), fixedClock(testStart), nil, ServiceConfig{SeedDemo: true})
	svc.Load(ctx)

	boards := svc.Boards(ctx)
	if len(boards) != 1 {
		t.Fatalf("expected one seeded board, got %d", len(boards))
	}
	if boards[0].Title != "Launch Project" {
		t.Fatalf("unexpected demo title %q", boards[0].Title)
	}
	if len(boards[0].Columns) != 3 {
		t.Fatalf("expected three demo columns, got %d", len(boards[0].Columns))
	}
	for _, column := range boards[0].Columns {
		if len(column.Cards) != 0 {
			t.Fatalf("demo column %q must start empty", column.Title)
		}
	}
	if svc.ActiveBoardID() != boards[0].ID {
		t.Fatalf("expected seeded board to be active, got %q", svc.ActiveBoardID())
	}
}

func TestLoadFallsBackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{loadErr: errors.New("corrupt file")}
	svc := NewService(store, sequentialIDs("id"), fixedClock(testStart), nil, ServiceConfig{SeedDemo: true})
	svc.Load(ctx)

	boards := svc.Boards(ctx)
	if len(boards) != 1 || boards[0].Title != "Launch Project" {
		t.Fatalf("expected demo fallback, got %#v", boards)
	}
}

func TestLoadWithoutSeedLeavesEmpty(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&fakeStore{}, sequentialIDs("id"), fixedClock(testStart), nil, ServiceConfig{})
	svc.Load(ctx)

	if got := len(svc.Boards(ctx)); got != 0 {
		t.Fatalf("expected no boards, got %d", got)
	}
	if _, err := svc.ActiveBoard(ctx); !errors.Is(err, ErrNoActiveBoard) {
		t.Fatalf("expected ErrNoActiveBoard, got %v", err)
	}
}

func TestCreateBoardSelectsIt(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	second, err := svc.CreateBoard(ctx, "  Next Sprint ")
	if err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if second.Title != "Next Sprint" {
		t.Fatalf("unexpected title %q", second.Title)
	}
	if svc.ActiveBoardID() != second.ID {
		t.Fatalf("expected new board active, got %q", svc.ActiveBoardID())
	}
	if len(store.boards) != 2 {
		t.Fatalf("expected persisted boards, got %d", len(store.boards))
	}
}

func TestCreateBoardRejectsBlankTitle(t *testing.T) {
	svc, store := newTestService(t)
	saves := store.saves

	if _, err := svc.CreateBoard(context.Background(), "   "); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if store.saves != saves {
		t.Fatal("failed create must not persist")
	}
	if len(svc.Boards(context.Background())) != 1 {
		t.Fatal("failed create must not change the tree")
	}
}

func TestDeleteBoardFallsBackToFirstRemaining(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	second, _ := svc.CreateBoard(ctx, "Second")
	if svc.ActiveBoardID() != second.ID {
		t.Fatalf("expected %q active", second.ID)
	}
	if err := svc.DeleteBoard(ctx, second.ID); err != nil {
		t.Fatalf("DeleteBoard() error = %v", err)
	}
	boards := svc.Boards(ctx)
	if svc.ActiveBoardID() != boards[0].ID {
		t.Fatalf("expected fallback to first board, got %q", svc.ActiveBoardID())
	}

	if err := svc.DeleteBoard(ctx, boards[0].ID); err != nil {
		t.Fatalf("DeleteBoard() error = %v", err)
	}
	if svc.ActiveBoardID() != "" {
		t.Fatalf("expected no active board, got %q", svc.ActiveBoardID())
	}
	if err := svc.DeleteBoard(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateColumnInPlace(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	boardID := svc.ActiveBoardID()

	column, err := svc.UpdateColumn(ctx, boardID, "id-2", "Backlog", "amber", domain.CategoryTodo)
	if err != nil {
		t.Fatalf("UpdateColumn() error = %v", err)
	}
	if column.Title != "Backlog" || column.Color != "amber" {
		t.Fatalf("unexpected column %#v", column)
	}

	board, _ := svc.Board(ctx, boardID)
	if board.Columns[0].Title != "Backlog" {
		t.Fatal("update did not land in the tree")
	}
	if len(board.Columns[0].Cards) != 2 {
		t.Fatal("update must preserve cards")
	}
}

func TestDeleteColumnCountsItsCards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	boardID := svc.ActiveBoardID()

	if err := svc.DeleteColumn(ctx, boardID, "id-2"); err != nil {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
	if got := svc.DeletedCards(); got != 2 {
		t.Fatalf("expected deleted counter 2, got %d", got)
	}
	board, _ := svc.Board(ctx, boardID)
	if len(board.Columns) != 1 {
		t.Fatalf("expected one remaining column, got %d", len(board.Columns))
	}
}

func TestUpdateCardKeepsIdentityAndTimestamps(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	boardID := svc.ActiveBoardID()

	card, err := svc.UpdateCard(ctx, boardID, "id-2", "id-4", "Write better docs", "outline first", domain.PriorityHigh)
	if err != nil {
		t.Fatalf("UpdateCard() error = %v", err)
	}
	if card.ID != "id-4" {
		t.Fatalf("unexpected id %q", card.ID)
	}
	if !card.CreatedAt.Equal(testStart) {
		t.Fatalf("created_at must survive updates, got %v", card.CreatedAt)
	}
	if card.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected priority %q", card.Priority)
	}
}

func TestDeleteCardIncrementsCounter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	boardID := svc.ActiveBoardID()

	if err := svc.DeleteCard(ctx, boardID, "id-2", "id-4"); err != nil {
		t.Fatalf("DeleteCard() error = %v", err)
	}
	if got := svc.DeletedCards(); got != 1 {
		t.Fatalf("expected deleted counter 1, got %d", got)
	}
	if err := svc.DeleteCard(ctx, boardID, "id-2", "id-4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := svc.DeletedCards(); got != 1 {
		t.Fatalf("counter must not move on failed delete, got %d", got)
	}
}

func TestSelectBoardRequiresExistingBoard(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.SelectBoard("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	boardID := svc.ActiveBoardID()
	if err := svc.SelectBoard(boardID); err != nil {
		t.Fatalf("SelectBoard() error = %v", err)
	}
}

func TestMutationsSurviveSaveFailure(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	boardID := svc.ActiveBoardID()

	store.saveErr = errors.New("disk full")
	if _, err := svc.CreateCard(ctx, boardID, "id-2", "Still here", "", ""); err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}

	board, _ := svc.Board(ctx, boardID)
	if len(board.Columns[0].Cards) != 3 {
		t.Fatal("in-memory tree must keep the mutation when save fails")
	}
}

func TestReadsReturnIndependentCopies(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	boardID := svc.ActiveBoardID()

	boards := svc.Boards(ctx)
	boards[0].Columns[0].Cards[0].Title = "mutated"
	boards[0].Columns = nil

	board, err := svc.Board(ctx, boardID)
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	if board.Columns[0].Cards[0].Title != "Write docs" {
		t.Fatal("caller mutation leaked into service state")
	}
}
