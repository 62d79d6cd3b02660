package model

import "time"

// Event is a single dated calendar entry. Events submitted through the web
// form or the seed command have no UID; imported events carry the UID of
// the feed occurrence they came from so re-imports are idempotent.
type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      Date      `gorm:"not null;index" json:"date"`
	Title     string    `gorm:"not null" json:"title"`
	UID       *string   `gorm:"uniqueIndex" json:"uid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Event) TableName() string {
	return "events"
}

// DayEvents is the list of titles stored on one date, in store order.
type DayEvents struct {
	Date   Date     `json:"date"`
	Titles []string `json:"titles"`
}
