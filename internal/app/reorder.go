package app

import (
	"context"
	"errors"
	"slices"
)

// dragKind identifies what an in-progress drag session is carrying.
type dragKind string

const (
	dragNone   dragKind = ""
	dragCard   dragKind = "card"
	dragColumn dragKind = "column"
)

// dragSession is the single-slot reorder gesture state. Starting a new drag
// replaces any previous one; a drop is only honored when the session kind
// matches the drop target.
type dragSession struct {
	kind           dragKind
	id             string
	sourceColumnID string
}

// StartCardDrag begins a card drag gesture.
func (s *Service) StartCardDrag(cardID, sourceColumnID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = dragSession{kind: dragCard, id: cardID, sourceColumnID: sourceColumnID}
}

// StartColumnDrag begins a column drag gesture.
func (s *Service) StartColumnDrag(columnID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = dragSession{kind: dragColumn, id: columnID}
}

// EndDrag clears the drag session without applying anything.
func (s *Service) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = dragSession{}
}

// DropCard completes a card drag onto a column position. A drop with no
// active card drag, or whose participants no longer exist, is ignored and
// leaves the tree unchanged. It reports whether a move was applied.
func (s *Service) DropCard(ctx context.Context, boardID, targetColumnID string, targetIndex int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.kind != dragCard {
		return false, nil
	}
	drag := s.drag
	s.drag = dragSession{}

	err := s.moveCardLocked(ctx, boardID, drag.sourceColumnID, drag.id, targetColumnID, targetIndex)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DropColumn completes a column drag onto another column. A drop with no
// active column drag is ignored. It reports whether a move was applied.
func (s *Service) DropColumn(ctx context.Context, boardID, targetColumnID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drag.kind != dragColumn {
		return false, nil
	}
	drag := s.drag
	s.drag = dragSession{}

	err := s.moveColumnLocked(ctx, boardID, drag.id, targetColumnID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MoveCard relocates one card between column positions without a drag session.
func (s *Service) MoveCard(ctx context.Context, boardID, sourceColumnID, cardID, targetColumnID string, targetIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveCardLocked(ctx, boardID, sourceColumnID, cardID, targetColumnID, targetIndex)
}

// MoveColumn relocates a column to the slot of another column.
func (s *Service) MoveColumn(ctx context.Context, boardID, sourceColumnID, targetColumnID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveColumnLocked(ctx, boardID, sourceColumnID, targetColumnID)
}

// moveCardLocked removes the card from its source column and inserts it at
// targetIndex in the target column, appending when the index is out of range.
// Crossing into a done column stamps completion; leaving one clears it.
// Callers hold the lock.
func (s *Service) moveCardLocked(ctx context.Context, boardID, sourceColumnID, cardID, targetColumnID string, targetIndex int) error {
	board, err := s.boardRef(boardID)
	if err != nil {
		return err
	}
	srcIdx := board.ColumnIndex(sourceColumnID)
	tgtIdx := board.ColumnIndex(targetColumnID)
	if srcIdx < 0 || tgtIdx < 0 {
		return ErrNotFound
	}
	src := &board.Columns[srcIdx]
	tgt := &board.Columns[tgtIdx]

	cardIdx := src.CardIndex(cardID)
	if cardIdx < 0 {
		return ErrNotFound
	}
	card := src.Cards[cardIdx]
	src.Cards = slices.Delete(src.Cards, cardIdx, cardIdx+1)

	wasDone := src.DoneColumn()
	nowDone := tgt.DoneColumn()
	if nowDone && !wasDone {
		card.Complete(s.clock())
	}
	if wasDone && !nowDone {
		card.ClearCompletion()
	}

	if targetIndex >= 0 && targetIndex <= len(tgt.Cards) {
		tgt.Cards = slices.Insert(tgt.Cards, targetIndex, card)
	} else {
		tgt.Cards = append(tgt.Cards, card)
	}

	s.touchAndPersist(ctx)
	return nil
}

// moveColumnLocked removes the source column and reinserts it at the slot the
// target column occupied before removal. Callers hold the lock.
func (s *Service) moveColumnLocked(ctx context.Context, boardID, sourceColumnID, targetColumnID string) error {
	board, err := s.boardRef(boardID)
	if err != nil {
		return err
	}
	srcIdx := board.ColumnIndex(sourceColumnID)
	tgtIdx := board.ColumnIndex(targetColumnID)
	if srcIdx < 0 || tgtIdx < 0 {
		return ErrNotFound
	}
	if srcIdx == tgtIdx {
		return nil
	}

	column := board.Columns[srcIdx]
	board.Columns = slices.Delete(board.Columns, srcIdx, srcIdx+1)
	if tgtIdx > len(board.Columns) {
		tgtIdx = len(board.Columns)
	}
	board.Columns = slices.Insert(board.Columns, tgtIdx, column)

	s.touchAndPersist(ctx)
	return nil
}
