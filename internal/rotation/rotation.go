// Package rotation implements fair round-robin agent selection backed by a
// durable counter.
package rotation

import (
	"errors"
	"fmt"

	"github.com/funildigital/funil/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterName is the rotation counter row shared by all instances.
const CounterName = "lead_rotation"

// Assignment is the outcome of one rotation step. Pre and Post snapshot the
// counter around the increment for the session audit trail; both are nil for
// sentinel assignments, which consume no rotation slot.
type Assignment struct {
	AgentName string
	AgentID   uint
	Pre       *int64
	Post      *int64
	Sentinel  bool
}

// Next atomically increments the rotation counter and selects an agent.
// The selected index is the counter value before the increment, modulo the
// roster length, so the first increment (0 → 1) picks roster[0].
//
// The increment and read-back happen inside one transaction: the UPDATE
// takes a row lock held to commit, so two concurrent callers can never
// observe the same pre-increment value. This is the single point where
// fairness is enforced — never split it into a read followed by a write.
//
// An empty roster skips the increment entirely and returns the sentinel.
func Next(db *gorm.DB, agents []models.Agent, sentinel string) (*Assignment, error) {
	if len(agents) == 0 {
		return SentinelAssignment(sentinel), nil
	}

	var post int64
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RotationCounter{}).Where("name = ?", CounterName).
			UpdateColumn("value", gorm.Expr("value + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("rotation: increment counter: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Counter row missing (db init not run yet) — create it, then
			// increment. OnConflict covers a racing creator.
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.RotationCounter{Name: CounterName}).Error; err != nil {
				return fmt.Errorf("rotation: create counter: %w", err)
			}
			res = tx.Model(&models.RotationCounter{}).Where("name = ?", CounterName).
				UpdateColumn("value", gorm.Expr("value + ?", 1))
			if res.Error != nil {
				return fmt.Errorf("rotation: increment counter: %w", res.Error)
			}
		}

		var c models.RotationCounter
		if err := tx.Where("name = ?", CounterName).First(&c).Error; err != nil {
			return fmt.Errorf("rotation: read counter: %w", err)
		}
		post = c.Value
		return nil
	})
	if err != nil {
		return nil, err
	}

	pre := post - 1
	agent := agents[pre%int64(len(agents))]
	return &Assignment{
		AgentName: agent.Name,
		AgentID:   agent.ID,
		Pre:       &pre,
		Post:      &post,
	}, nil
}

// Peek returns the current counter value without incrementing. A missing
// counter row reads as zero.
func Peek(db *gorm.DB) (int64, error) {
	var c models.RotationCounter
	err := db.Where("name = ?", CounterName).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rotation: peek counter: %w", err)
	}
	return c.Value, nil
}

// Expected returns the agent the next increment would select, for audit
// messages. It never consumes a rotation slot.
func Expected(db *gorm.DB, agents []models.Agent, sentinel string) string {
	if len(agents) == 0 {
		return sentinel
	}
	value, err := Peek(db)
	if err != nil {
		return sentinel
	}
	return agents[value%int64(len(agents))].Name
}

// SentinelAssignment is the degraded assignment used when no agents are
// available or the counter is unreachable.
func SentinelAssignment(sentinel string) *Assignment {
	return &Assignment{AgentName: sentinel, Sentinel: true}
}
