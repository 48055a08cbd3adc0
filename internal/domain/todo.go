package domain

import "time"

type TodoList struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PageName  string    `gorm:"size:191;uniqueIndex;not null" json:"page_name"`
	Title     string    `gorm:"size:255" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task positions are unique within a list; the composite index backs the
// invariant that the reorder path validates before writing.
type Task struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TodoListID uint      `gorm:"not null;uniqueIndex:idx_tasks_list_position,priority:1" json:"todo_list_id"`
	Label      string    `gorm:"size:512;not null" json:"label"`
	Finished   bool      `gorm:"not null;default:false" json:"finished"`
	Position   int       `gorm:"not null;uniqueIndex:idx_tasks_list_position,priority:2" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type TaskPosition struct {
	TaskID   uint
	Position int
}
