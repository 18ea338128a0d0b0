package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/tavla/internal/app"
)

// newTestHandler builds a handler over a loaded in-memory service with one
// seeded board (To Do id-2 with card id-4, Done id-3).
func newTestHandler(t *testing.T) (*Handler, *app.Service) {
	t.Helper()
	ctx := context.Background()
	next := 0
	idGen := func() string {
		next++
		return fmt.Sprintf("id-%d", next)
	}
	clock := func() time.Time { return time.Date(2026, 2, 21, 9, 30, 0, 0, time.UTC) }
	svc := app.NewService(nil, idGen, clock, nil, app.ServiceConfig{})
	svc.Load(ctx)

	board, err := svc.CreateBoard(ctx, "Release")
	if err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if _, err := svc.CreateColumn(ctx, board.ID, "To Do", "slate", "todo"); err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	if _, err := svc.CreateColumn(ctx, board.ID, "Done", "green", "done"); err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	if _, err := svc.CreateCard(ctx, board.ID, "id-2", "Write docs", "", "low"); err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	return NewHandler(svc), svc
}

// do runs one request through the handler and returns the recorder.
func do(handler *Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListBoards(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodGet, "/boards", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var payload struct {
		Boards        []app.BoardSnapshot `json:"boards"`
		ActiveBoardID string              `json:"active_board_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(payload.Boards) != 1 || payload.Boards[0].Title != "Release" {
		t.Fatalf("unexpected boards %#v", payload.Boards)
	}
	if payload.ActiveBoardID != "id-1" {
		t.Fatalf("active_board_id = %q, want id-1", payload.ActiveBoardID)
	}
}

func TestCreateBoard(t *testing.T) {
	handler, svc := newTestHandler(t)

	rec := do(handler, http.MethodPost, "/boards", `{"title": "Next Sprint"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}
	var board app.BoardSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&board); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if board.Title != "Next Sprint" {
		t.Fatalf("title = %q", board.Title)
	}
	if svc.ActiveBoardID() != board.ID {
		t.Fatalf("new board must become active, got %q", svc.ActiveBoardID())
	}
}

func TestCreateBoardRejectsBlankTitle(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodPost, "/boards", `{"title": "   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body)
	}
	var envelope ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if envelope.Error.Code != "invalid_request" {
		t.Fatalf("code = %q, want invalid_request", envelope.Error.Code)
	}
}

func TestBoardNotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodGet, "/boards/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRenameBoard(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodPatch, "/boards/id-1", `{"title": "Renamed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var board app.BoardSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&board); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if board.Title != "Renamed" {
		t.Fatalf("title = %q", board.Title)
	}
}

func TestDeleteBoardReportsNewSelection(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodDelete, "/boards/id-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var payload struct {
		Deleted       string `json:"deleted"`
		ActiveBoardID string `json:"active_board_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if payload.Deleted != "id-1" || payload.ActiveBoardID != "" {
		t.Fatalf("unexpected payload %#v", payload)
	}
}

func TestColumnLifecycle(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodPost, "/boards/id-1/columns", `{"title": "Review", "color": "violet"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var column app.ColumnSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&column); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if column.Title != "Review" || column.ID != "id-5" {
		t.Fatalf("unexpected column %#v", column)
	}

	rec = do(handler, http.MethodPatch, "/boards/id-1/columns/id-5", `{"title": "QA", "color": "violet", "category": "doing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}

	rec = do(handler, http.MethodDelete, "/boards/id-1/columns/id-5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body)
	}
}

func TestCreateColumnRejectsUnknownCategory(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodPost, "/boards/id-1/columns", `{"title": "X", "category": "later"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body)
	}
}

func TestCardLifecycle(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodPost, "/boards/id-1/columns/id-2/cards", `{"title": "Fix login", "priority": "critical"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var card app.CardSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&card); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if card.Priority != "critical" {
		t.Fatalf("priority = %q", card.Priority)
	}

	rec = do(handler, http.MethodPatch, "/boards/id-1/columns/id-2/cards/"+card.ID, `{"title": "Fix login flow", "priority": "high"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}

	rec = do(handler, http.MethodDelete, "/boards/id-1/columns/id-2/cards/"+card.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body)
	}
}

func TestMoveCardEndpoint(t *testing.T) {
	handler, svc := newTestHandler(t)

	body := `{"source_column_id": "id-2", "card_id": "id-4", "target_column_id": "id-3", "target_index": 0}`
	rec := do(handler, http.MethodPost, "/boards/id-1/cards/move", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	board, err := svc.Board(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	if len(board.Columns[1].Cards) != 1 || board.Columns[1].Cards[0].CompletedAt == nil {
		t.Fatalf("move did not land: %#v", board.Columns)
	}
}

func TestMoveColumnEndpoint(t *testing.T) {
	handler, svc := newTestHandler(t)

	body := `{"source_column_id": "id-3", "target_column_id": "id-2"}`
	rec := do(handler, http.MethodPost, "/boards/id-1/columns/move", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	board, err := svc.Board(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	if board.Columns[0].ID != "id-3" {
		t.Fatalf("column order unchanged: %#v", board.Columns)
	}
}

func TestBoardStatsEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodGet, "/boards/id-1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if payload["board_id"] != "id-1" {
		t.Fatalf("board_id = %v", payload["board_id"])
	}
	if payload["days_active"].(float64) < 1 {
		t.Fatalf("days_active = %v", payload["days_active"])
	}
}

func TestExportImportEndpoints(t *testing.T) {
	handler, svc := newTestHandler(t)

	rec := do(handler, http.MethodGet, "/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "kanban.json") {
		t.Fatalf("Content-Disposition = %q", got)
	}
	exported := rec.Body.String()

	if _, err := svc.CreateBoard(context.Background(), "Extra"); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}

	rec = do(handler, http.MethodPost, "/import", exported)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body)
	}
	boards := svc.Boards(context.Background())
	if len(boards) != 1 || boards[0].ID != "id-1" {
		t.Fatalf("import must replace boards, got %#v", boards)
	}
}

func TestImportRejectsCorruptDocument(t *testing.T) {
	handler, svc := newTestHandler(t)

	rec := do(handler, http.MethodPost, "/import", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body)
	}
	if len(svc.Boards(context.Background())) != 1 {
		t.Fatal("failed import must leave boards untouched")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodPut, "/boards", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if got := rec.Header().Get("Allow"); !strings.Contains(got, http.MethodGet) {
		t.Fatalf("Allow = %q", got)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
