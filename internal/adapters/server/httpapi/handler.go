// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hylla/tavla/internal/adapters/server/common"
	"github.com/hylla/tavla/internal/app"
	"github.com/hylla/tavla/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	boards common.BoardService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over the board service.
func NewHandler(boards common.BoardService) *Handler {
	return &Handler{boards: boards}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.boards == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "board service is not configured",
		})
		return
	}

	path := normalizePath(r.URL.Path)
	switch {
	case path == "boards":
		switch r.Method {
		case http.MethodGet:
			h.handleListBoards(w, r)
		case http.MethodPost:
			h.handleCreateBoard(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case path == "export":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleExport(w, r)
	case path == "import":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleImport(w, r)
	default:
		h.routeBoardPath(w, r, path)
	}
}

// routeBoardPath dispatches `boards/{id}/...` paths by segment.
func (h *Handler) routeBoardPath(w http.ResponseWriter, r *http.Request, path string) {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || segments[0] != "boards" || segments[1] == "" {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
		return
	}
	boardID := segments[1]
	rest := segments[2:]

	switch {
	case len(rest) == 0:
		h.handleBoard(w, r, boardID)
	case len(rest) == 1 && rest[0] == "select":
		h.requirePost(w, r, func() { h.handleSelectBoard(w, r, boardID) })
	case len(rest) == 1 && rest[0] == "stats":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleBoardStats(w, r, boardID)
	case len(rest) == 1 && rest[0] == "columns":
		h.requirePost(w, r, func() { h.handleCreateColumn(w, r, boardID) })
	case len(rest) == 2 && rest[0] == "columns" && rest[1] == "move":
		h.requirePost(w, r, func() { h.handleMoveColumn(w, r, boardID) })
	case len(rest) == 2 && rest[0] == "cards" && rest[1] == "move":
		h.requirePost(w, r, func() { h.handleMoveCard(w, r, boardID) })
	case len(rest) == 2 && rest[0] == "columns" && rest[1] != "":
		h.handleColumn(w, r, boardID, rest[1])
	case len(rest) == 3 && rest[0] == "columns" && rest[2] == "cards":
		h.requirePost(w, r, func() { h.handleCreateCard(w, r, boardID, rest[1]) })
	case len(rest) == 4 && rest[0] == "columns" && rest[2] == "cards" && rest[3] != "":
		h.handleCard(w, r, boardID, rest[1], rest[3])
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// requirePost guards POST-only routes.
func (h *Handler) requirePost(w http.ResponseWriter, r *http.Request, next func()) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	next()
}

type boardRequest struct {
	Title string `json:"title"`
}

type columnRequest struct {
	Title    string `json:"title"`
	Color    string `json:"color"`
	Category string `json:"category"`
}

type cardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type moveCardRequest struct {
	SourceColumnID string `json:"source_column_id"`
	CardID         string `json:"card_id"`
	TargetColumnID string `json:"target_column_id"`
	TargetIndex    *int   `json:"target_index"`
}

type moveColumnRequest struct {
	SourceColumnID string `json:"source_column_id"`
	TargetColumnID string `json:"target_column_id"`
}

// handleListBoards serves GET `/boards`.
func (h *Handler) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards := h.boards.Boards(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"boards":          common.BoardsPayload(boards),
		"active_board_id": h.boards.ActiveBoardID(),
	})
}

// handleCreateBoard serves POST `/boards`.
func (h *Handler) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	var req boardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	board, err := h.boards.CreateBoard(r.Context(), req.Title)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, common.BoardPayload(board))
}

// handleBoard serves GET, PATCH, and DELETE `/boards/{id}`.
func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	switch r.Method {
	case http.MethodGet:
		board, err := h.boards.Board(r.Context(), boardID)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, common.BoardPayload(board))
	case http.MethodPatch:
		var req boardRequest
		if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
			writeErrorFrom(w, err)
			return
		}
		board, err := h.boards.RenameBoard(r.Context(), boardID, req.Title)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, common.BoardPayload(board))
	case http.MethodDelete:
		if err := h.boards.DeleteBoard(r.Context(), boardID); err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"deleted":         boardID,
			"active_board_id": h.boards.ActiveBoardID(),
		})
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// handleSelectBoard serves POST `/boards/{id}/select`.
func (h *Handler) handleSelectBoard(w http.ResponseWriter, r *http.Request, boardID string) {
	if err := h.boards.SelectBoard(boardID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active_board_id": boardID,
	})
}

// handleBoardStats serves GET `/boards/{id}/stats`.
func (h *Handler) handleBoardStats(w http.ResponseWriter, r *http.Request, boardID string) {
	stats, err := h.boards.BoardStats(r.Context(), boardID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.StatsPayloadFrom(stats))
}

// handleCreateColumn serves POST `/boards/{id}/columns`.
func (h *Handler) handleCreateColumn(w http.ResponseWriter, r *http.Request, boardID string) {
	var req columnRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	category, err := domain.NormalizeCategory(req.Category)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	column, err := h.boards.CreateColumn(r.Context(), boardID, req.Title, req.Color, category)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, common.ColumnPayload(column))
}

// handleColumn serves PATCH and DELETE `/boards/{id}/columns/{columnID}`.
func (h *Handler) handleColumn(w http.ResponseWriter, r *http.Request, boardID, columnID string) {
	switch r.Method {
	case http.MethodPatch:
		var req columnRequest
		if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
			writeErrorFrom(w, err)
			return
		}
		category, err := domain.NormalizeCategory(req.Category)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		column, err := h.boards.UpdateColumn(r.Context(), boardID, columnID, req.Title, req.Color, category)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, common.ColumnPayload(column))
	case http.MethodDelete:
		if err := h.boards.DeleteColumn(r.Context(), boardID, columnID); err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": columnID})
	default:
		writeMethodNotAllowed(w, http.MethodPatch, http.MethodDelete)
	}
}

// handleCreateCard serves POST `/boards/{id}/columns/{columnID}/cards`.
func (h *Handler) handleCreateCard(w http.ResponseWriter, r *http.Request, boardID, columnID string) {
	var req cardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	priority, err := domain.NormalizePriority(req.Priority)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	card, err := h.boards.CreateCard(r.Context(), boardID, columnID, req.Title, req.Description, priority)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, common.CardPayload(card))
}

// handleCard serves PATCH and DELETE `/boards/{id}/columns/{columnID}/cards/{cardID}`.
func (h *Handler) handleCard(w http.ResponseWriter, r *http.Request, boardID, columnID, cardID string) {
	switch r.Method {
	case http.MethodPatch:
		var req cardRequest
		if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
			writeErrorFrom(w, err)
			return
		}
		priority, err := domain.NormalizePriority(req.Priority)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		card, err := h.boards.UpdateCard(r.Context(), boardID, columnID, cardID, req.Title, req.Description, priority)
		if err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, common.CardPayload(card))
	case http.MethodDelete:
		if err := h.boards.DeleteCard(r.Context(), boardID, columnID, cardID); err != nil {
			writeErrorFrom(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": cardID})
	default:
		writeMethodNotAllowed(w, http.MethodPatch, http.MethodDelete)
	}
}

// handleMoveCard serves POST `/boards/{id}/cards/move`.
func (h *Handler) handleMoveCard(w http.ResponseWriter, r *http.Request, boardID string) {
	var req moveCardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	targetIndex := -1
	if req.TargetIndex != nil {
		targetIndex = *req.TargetIndex
	}
	err := h.boards.MoveCard(r.Context(), boardID, req.SourceColumnID, req.CardID, req.TargetColumnID, targetIndex)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	board, err := h.boards.Board(r.Context(), boardID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.BoardPayload(board))
}

// handleMoveColumn serves POST `/boards/{id}/columns/move`.
func (h *Handler) handleMoveColumn(w http.ResponseWriter, r *http.Request, boardID string) {
	var req moveColumnRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	err := h.boards.MoveColumn(r.Context(), boardID, req.SourceColumnID, req.TargetColumnID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	board, err := h.boards.Board(r.Context(), boardID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.BoardPayload(board))
}

// handleExport serves GET `/export` with the indented state document.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.boards.ExportState()
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="kanban.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport serves POST `/import`, replacing all boards.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		writeErrorFrom(w, fmt.Errorf("read request body: %w", errors.Join(common.ErrInvalidRequest, err)))
		return
	}
	count, err := h.boards.ImportState(r.Context(), data)
	if err != nil {
		writeErrorFrom(w, fmt.Errorf("%w: %w", common.ErrInvalidRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"imported":        count,
		"active_board_id": h.boards.ActiveBoardID(),
	})
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, app.ErrNotFound), errors.Is(err, app.ErrNoActiveBoard):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidColumnID):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
