package models

import "time"

// Agent is a roster entry eligible for lead assignment.
type Agent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:64;uniqueIndex;not null"`
	Role      string `gorm:"size:32;index"`
	Phone     string `gorm:"size:32"`
	Email     string `gorm:"size:128"`
	Active    bool   `gorm:"default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
