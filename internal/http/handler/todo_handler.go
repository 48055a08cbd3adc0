package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/http/response"
	"github.com/dashkit/admin-dashboard/internal/observability"
	"github.com/dashkit/admin-dashboard/internal/service"
)

const TaskIDHeader = "X-Task-Id"

type TodoHandler struct {
	todos  *service.TodoService
	logger *slog.Logger
}

func NewTodoHandler(todos *service.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todos: todos, logger: loggerOrDefault(logger)}
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondWithList(w, r, chi.URLParam(r, "name"), http.StatusOK)
}

type appendRequest struct {
	Label string `json:"label"`
}

func (h *TodoHandler) Append(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req appendRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}
	if _, err := h.todos.Append(r.Context(), name, req.Label); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.respondWithList(w, r, name, http.StatusOK)
}

type toggleRequest struct {
	Finished *bool `json:"finished"`
}

func (h *TodoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	taskID, err := strconv.ParseUint(strings.TrimSpace(r.Header.Get(TaskIDHeader)), 10, 64)
	if err != nil || taskID == 0 {
		badRequest(w, r, "missing or invalid "+TaskIDHeader+" header")
		return
	}
	var req toggleRequest
	if err := decodeJSON(r, &req); err != nil || req.Finished == nil {
		badRequest(w, r, "body must be {\"finished\": boolean}")
		return
	}
	if _, err := h.todos.Toggle(r.Context(), name, uint(taskID), *req.Finished); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.respondWithList(w, r, name, http.StatusOK)
}

type reorderRequest struct {
	Name      string          `json:"name"`
	Positions json.RawMessage `json:"positions"`
}

type reorderEntry struct {
	TaskID   json.RawMessage `json:"taskId"`
	Position json.RawMessage `json:"position"`
}

func (h *TodoHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}
	positions, err := parsePositions(req.Positions)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if err := h.todos.Reorder(r.Context(), req.Name, positions); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	observability.Audit(r, "reorder", "list", req.Name, "size", len(positions))
	h.respondWithList(w, r, req.Name, http.StatusOK)
}

func (h *TodoHandler) respondWithList(w http.ResponseWriter, r *http.Request, name string, status int) {
	view, err := h.todos.List(r.Context(), name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, status, view)
}

// parsePositions accepts taskId as a positive integer or a decimal string and
// position only as a non-negative JSON integer.
func parsePositions(raw json.RawMessage) ([]domain.TaskPosition, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, errors.New("positions must be a sequence")
	}
	var entries []reorderEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.New("positions must be a sequence of {taskId, position}")
	}
	if len(entries) == 0 {
		return nil, errors.New("positions must not be empty")
	}
	out := make([]domain.TaskPosition, 0, len(entries))
	for i, e := range entries {
		id, err := parseTaskID(e.TaskID)
		if err != nil {
			return nil, errors.New("positions[" + strconv.Itoa(i) + "].taskId is malformed")
		}
		pos, err := strconv.Atoi(string(bytes.TrimSpace(e.Position)))
		if err != nil || pos < 0 {
			return nil, errors.New("positions[" + strconv.Itoa(i) + "].position must be a non-negative integer")
		}
		out = append(out, domain.TaskPosition{TaskID: id, Position: pos})
	}
	return out, nil
}

func parseTaskID(raw json.RawMessage) (uint, error) {
	raw = bytes.TrimSpace(raw)
	text := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	}
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("zero task id")
	}
	return uint(id), nil
}
