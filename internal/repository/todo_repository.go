package repository

import (
	"context"
	"errors"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TodoRepository interface {
	FindListByPage(ctx context.Context, pageName string) (*domain.TodoList, error)
	EnsureList(ctx context.Context, pageName, title string) (*domain.TodoList, error)
	ListTasks(ctx context.Context, listID uint) ([]domain.Task, error)
	AppendTask(ctx context.Context, pageName, label string) (*domain.Task, error)
	SetTaskFinished(ctx context.Context, pageName string, taskID uint, finished bool) (*domain.Task, error)
	ReorderTasks(ctx context.Context, pageName string, positions []domain.TaskPosition) error
}

type GormTodoRepository struct{ db *gorm.DB }

func NewTodoRepository(db *gorm.DB) TodoRepository { return &GormTodoRepository{db: db} }

func (r *GormTodoRepository) FindListByPage(ctx context.Context, pageName string) (*domain.TodoList, error) {
	list, err := findList(r.db.WithContext(ctx), pageName, false)
	r.record(ctx, "find_list_by_page", err)
	return list, err
}

func (r *GormTodoRepository) EnsureList(ctx context.Context, pageName, title string) (*domain.TodoList, error) {
	list, err := ensureList(r.db.WithContext(ctx), pageName, title)
	r.record(ctx, "ensure_list", err)
	return list, err
}

func (r *GormTodoRepository) ListTasks(ctx context.Context, listID uint) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("todo_list_id = ?", listID).
		Order("position ASC").
		Order("id ASC").
		Find(&tasks).Error
	err = storeErr("sql", "list tasks", err)
	r.record(ctx, "list_tasks", err)
	return tasks, err
}

// AppendTask locks the list row so concurrent appends observe each other's
// MAX(position) and never hand out the same slot.
func (r *GormTodoRepository) AppendTask(ctx context.Context, pageName, label string) (*domain.Task, error) {
	var created *domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := findList(tx, pageName, true)
		if err != nil {
			return err
		}
		var maxPos int
		if err := tx.Model(&domain.Task{}).
			Where("todo_list_id = ?", list.ID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error; err != nil {
			return storeErr("sql", "max position", err)
		}
		task := &domain.Task{TodoListID: list.ID, Label: label, Finished: false, Position: maxPos + 1}
		if err := tx.Create(task).Error; err != nil {
			return storeErr("sql", "insert task", err)
		}
		created = task
		return nil
	})
	r.record(ctx, "append_task", err)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *GormTodoRepository) SetTaskFinished(ctx context.Context, pageName string, taskID uint, finished bool) (*domain.Task, error) {
	var updated domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := findList(tx, pageName, false)
		if err != nil {
			return err
		}
		res := tx.Model(&domain.Task{}).
			Where("id = ? AND todo_list_id = ?", taskID, list.ID).
			Update("finished", finished)
		if res.Error != nil {
			return storeErr("sql", "update finished", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return storeErr("sql", "reload task", tx.First(&updated, taskID).Error)
	})
	r.record(ctx, "set_task_finished", err)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ReorderTasks applies every requested position or none. The list row is
// locked for the whole transaction, membership and final uniqueness are
// checked before the first write, and affected rows are parked at -id so
// swaps never collide on the (list, position) index mid-update.
func (r *GormTodoRepository) ReorderTasks(ctx context.Context, pageName string, positions []domain.TaskPosition) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := findList(tx, pageName, true)
		if err != nil {
			return err
		}
		var tasks []domain.Task
		if err := tx.Where("todo_list_id = ?", list.ID).Find(&tasks).Error; err != nil {
			return storeErr("sql", "load tasks", err)
		}
		final := make(map[uint]int, len(tasks))
		for _, t := range tasks {
			final[t.ID] = t.Position
		}
		for _, p := range positions {
			if _, ok := final[p.TaskID]; !ok {
				return ErrTaskNotFound
			}
			final[p.TaskID] = p.Position
		}
		taken := make(map[int]struct{}, len(final))
		for _, pos := range final {
			if _, dup := taken[pos]; dup {
				return ErrPositionConflict
			}
			taken[pos] = struct{}{}
		}

		for _, p := range positions {
			if err := setPosition(tx, list.ID, p.TaskID, -int(p.TaskID)); err != nil {
				return err
			}
		}
		for _, p := range positions {
			if err := setPosition(tx, list.ID, p.TaskID, p.Position); err != nil {
				return err
			}
		}
		return nil
	})
	r.record(ctx, "reorder_tasks", err)
	return err
}

func (r *GormTodoRepository) record(ctx context.Context, op string, err error) {
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(ctx, "todo", op, "success")
	case errors.Is(err, ErrTodoListNotFound), errors.Is(err, ErrTaskNotFound):
		observability.RecordRepositoryOperation(ctx, "todo", op, "not_found")
	case errors.Is(err, ErrPositionConflict):
		observability.RecordRepositoryOperation(ctx, "todo", op, "conflict")
	default:
		observability.RecordRepositoryOperation(ctx, "todo", op, "error")
	}
}

func findList(tx *gorm.DB, pageName string, lock bool) (*domain.TodoList, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var list domain.TodoList
	if err := q.Where("page_name = ?", pageName).First(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoListNotFound
		}
		return nil, storeErr("sql", "find list", err)
	}
	return &list, nil
}

func ensureList(tx *gorm.DB, pageName, title string) (*domain.TodoList, error) {
	list := domain.TodoList{PageName: pageName, Title: title}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_name"}},
		DoNothing: true,
	}).Create(&list).Error
	if err != nil {
		return nil, storeErr("sql", "ensure list", err)
	}
	return findList(tx, pageName, false)
}

func setPosition(tx *gorm.DB, listID, taskID uint, position int) error {
	res := tx.Model(&domain.Task{}).
		Where("id = ? AND todo_list_id = ?", taskID, listID).
		Update("position", position)
	if res.Error != nil {
		return storeErr("sql", "update position", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
