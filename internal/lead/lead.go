// Package lead manages the Lead system-of-record rows.
package lead

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/funildigital/funil/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Input holds the submission fields for a lead upsert. Phone must already be
// normalized to digits only.
type Input struct {
	Name          string
	Email         string
	Phone         string
	Course        string
	Modality      string
	Message       string
	SessionID     string
	AssignedAgent string
}

// Upsert finds or creates the Lead identified by the normalized phone.
// On a match only empty fields are filled — existing data is never
// overwritten, and no second row is ever created for the same phone.
// Every call leaves an audit event describing what happened.
// The returned bool reports whether a new Lead was created.
func Upsert(db *gorm.DB, in Input) (*models.Lead, bool, error) {
	if in.Name == "" {
		return nil, false, fmt.Errorf("lead: name is required")
	}
	if in.Phone == "" {
		return nil, false, fmt.Errorf("lead: phone is required")
	}

	fresh := models.Lead{
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Course:        in.Course,
		Modality:      in.Modality,
		Message:       in.Message,
		SessionID:     in.SessionID,
		AssignedAgent: in.AssignedAgent,
		Status:        "pending",
	}

	// Idempotent on phone: a concurrent creator wins and we fall through to
	// the fill-empty path.
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(&fresh)
	if result.Error != nil {
		return nil, false, fmt.Errorf("lead: create: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		event := models.LeadEvent{
			LeadID:    fresh.ID,
			Kind:      "created",
			Note:      fmt.Sprintf("captured from session %s, assigned to %s", in.SessionID, in.AssignedAgent),
			CreatedAt: time.Now(),
		}
		if err := db.Create(&event).Error; err != nil {
			return nil, false, fmt.Errorf("lead: audit create: %w", err)
		}
		return &fresh, true, nil
	}

	var existing models.Lead
	if err := db.Where("phone = ?", in.Phone).First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("lead: load existing: %w", err)
	}

	updates := fillEmpty(&existing, in)
	if len(updates) > 0 {
		if err := db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, false, fmt.Errorf("lead: update: %w", err)
		}
	}

	filled := make([]string, 0, len(updates))
	for col := range updates {
		filled = append(filled, col)
	}
	sort.Strings(filled)
	note := "repeat submission, nothing to fill"
	if len(filled) > 0 {
		note = "repeat submission filled: " + strings.Join(filled, ", ")
	}
	event := models.LeadEvent{
		LeadID:    existing.ID,
		Kind:      "updated",
		Note:      note,
		CreatedAt: time.Now(),
	}
	if err := db.Create(&event).Error; err != nil {
		return nil, false, fmt.Errorf("lead: audit update: %w", err)
	}

	return &existing, false, nil
}

// fillEmpty returns the column updates for fields that are empty on the
// existing row and present in the input, applying them to existing as well.
func fillEmpty(existing *models.Lead, in Input) map[string]interface{} {
	updates := map[string]interface{}{}

	set := func(column string, current *string, incoming string) {
		if *current == "" && incoming != "" {
			updates[column] = incoming
			*current = incoming
		}
	}
	set("name", &existing.Name, in.Name)
	set("email", &existing.Email, in.Email)
	set("course", &existing.Course, in.Course)
	set("modality", &existing.Modality, in.Modality)
	set("message", &existing.Message, in.Message)
	set("session_id", &existing.SessionID, in.SessionID)
	set("assigned_agent", &existing.AssignedAgent, in.AssignedAgent)

	return updates
}
