package domain

import "time"

type Onboarding struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Done        bool       `gorm:"not null;default:false" json:"done"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Site struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Models lists every table the relational store owns, in migration order.
func Models() []any {
	return []any{&User{}, &Onboarding{}, &Site{}, &TodoList{}, &Task{}}
}
