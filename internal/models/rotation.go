package models

// RotationCounter is the single durable counter driving round-robin
// assignment. One row per counter name; incremented atomically.
type RotationCounter struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"size:32;uniqueIndex;not null"`
	Value int64  `gorm:"not null;default:0"`
}
