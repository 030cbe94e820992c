package models

import "time"

// Session pins one visitor's client identifier to an assigned agent.
// Rows are append-only: Phone is written at most once and sessions are
// never deleted, so the table doubles as the routing audit history.
type Session struct {
	ID            uint    `gorm:"primaryKey;autoIncrement"`
	SessionID     string  `gorm:"size:64;uniqueIndex;not null"`
	Phone         *string `gorm:"size:32;index"`
	AssignedAgent string  `gorm:"size:64;not null"`
	CounterValue  *int64
	CreatedAt     time.Time `gorm:"index"`
}
