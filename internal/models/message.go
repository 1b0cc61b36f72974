package models

import "time"

// Message is one chat turn. Messages are append-only and ordered by Timestamp.
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"size:100;not null;index" json:"session_id"`
	Sender    Sender    `gorm:"size:8;not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}
