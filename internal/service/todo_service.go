package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/observability"
	"github.com/dashkit/admin-dashboard/internal/repository"
)

const maxLabelLength = 512

type TaskView struct {
	ID       uint   `json:"id"`
	Label    string `json:"label"`
	Finished bool   `json:"finished"`
	Position int    `json:"position"`
}

// TodoView is the read model of one list. Order holds task ids in position
// order, which maps back onto reorder input via PositionsFromOrder.
type TodoView struct {
	Title string     `json:"title"`
	Tasks []TaskView `json:"tasks"`
	Order []uint     `json:"order"`
}

type TodoService struct {
	repo  repository.TodoRepository
	locks *keyedMutex
}

func NewTodoService(repo repository.TodoRepository) *TodoService {
	return &TodoService{repo: repo, locks: newKeyedMutex()}
}

func (s *TodoService) EnsureList(ctx context.Context, pageName, title string) (*domain.TodoList, error) {
	pageName = strings.TrimSpace(pageName)
	if pageName == "" {
		return nil, invalid("name", "required")
	}
	return s.repo.EnsureList(ctx, pageName, title)
}

func (s *TodoService) List(ctx context.Context, pageName string) (*TodoView, error) {
	if strings.TrimSpace(pageName) == "" {
		return nil, invalid("name", "required")
	}
	list, err := s.repo.FindListByPage(ctx, pageName)
	if err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListTasks(ctx, list.ID)
	if err != nil {
		return nil, err
	}
	view := &TodoView{
		Title: list.Title,
		Tasks: make([]TaskView, 0, len(tasks)),
		Order: make([]uint, 0, len(tasks)),
	}
	for _, t := range tasks {
		view.Tasks = append(view.Tasks, TaskView{ID: t.ID, Label: t.Label, Finished: t.Finished, Position: t.Position})
		view.Order = append(view.Order, t.ID)
	}
	return view, nil
}

func (s *TodoService) Append(ctx context.Context, pageName, label string) (*domain.Task, error) {
	if strings.TrimSpace(pageName) == "" {
		return nil, invalid("name", "required")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, invalid("label", "required")
	}
	if len(label) > maxLabelLength {
		return nil, invalid("label", "too long")
	}
	unlock := s.locks.Lock(pageName)
	defer unlock()
	task, err := s.repo.AppendTask(ctx, pageName, label)
	observability.RecordTaskMutation(ctx, "append", outcome(err))
	return task, err
}

func (s *TodoService) Toggle(ctx context.Context, pageName string, taskID uint, finished bool) (*domain.Task, error) {
	if strings.TrimSpace(pageName) == "" {
		return nil, invalid("name", "required")
	}
	if taskID == 0 {
		return nil, invalid("taskId", "required")
	}
	task, err := s.repo.SetTaskFinished(ctx, pageName, taskID, finished)
	observability.RecordTaskMutation(ctx, "toggle", outcome(err))
	return task, err
}

// Reorder applies all positions or none. Requests against the same list are
// serialized in-process; the repository transaction guards across processes.
func (s *TodoService) Reorder(ctx context.Context, pageName string, positions []domain.TaskPosition) error {
	if strings.TrimSpace(pageName) == "" {
		return invalid("name", "required")
	}
	if len(positions) == 0 {
		return invalid("positions", "must not be empty")
	}
	seen := make(map[uint]struct{}, len(positions))
	for _, p := range positions {
		if p.TaskID == 0 {
			return invalid("taskId", "required")
		}
		if p.Position < 0 {
			return invalid("position", "must be a non-negative integer")
		}
		if _, dup := seen[p.TaskID]; dup {
			return invalid("taskId", "duplicate task in reorder")
		}
		seen[p.TaskID] = struct{}{}
	}

	unlock := s.locks.Lock(pageName)
	defer unlock()
	err := s.repo.ReorderTasks(ctx, pageName, positions)
	observability.RecordTaskReorder(ctx, outcome(err), len(positions))
	if errors.Is(err, repository.ErrPositionConflict) {
		return invalid("position", "two tasks would share a position")
	}
	return err
}

// PositionsFromOrder turns an id sequence into 1-based positions.
func PositionsFromOrder(order []uint) []domain.TaskPosition {
	out := make([]domain.TaskPosition, len(order))
	for i, id := range order {
		out[i] = domain.TaskPosition{TaskID: id, Position: i + 1}
	}
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, repository.ErrPositionConflict), errors.Is(err, ErrValidation):
		return "rejected"
	default:
		return "error"
	}
}
