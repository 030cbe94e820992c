package models

import "time"

// Lead is a prospect captured from a public form. At most one row exists
// per normalized phone number; repeat submissions only fill empty fields.
type Lead struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:128;not null"`
	Email         string `gorm:"size:128"`
	Phone         string `gorm:"size:32;uniqueIndex;not null"`
	Course        string `gorm:"size:128"`
	Modality      string `gorm:"size:32"`
	Message       string `gorm:"type:text"`
	SessionID     string `gorm:"size:64;index"`
	AssignedAgent string `gorm:"size:64;index"`
	Status        string `gorm:"size:16;default:pending;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Events []LeadEvent `gorm:"foreignKey:LeadID"`
}

// LeadEvent is an audit trail entry describing what happened to a lead.
type LeadEvent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	LeadID    uint   `gorm:"not null;index"`
	Kind      string `gorm:"size:16;not null"` // created, updated, assigned
	Note      string `gorm:"type:text"`
	CreatedAt time.Time
}
