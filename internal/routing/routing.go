// Package routing decides which sales agent is responsible for a visitor.
package routing

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/funildigital/funil/internal/models"
	"github.com/funildigital/funil/internal/roster"
	"github.com/funildigital/funil/internal/rotation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Resolution is the outcome of resolving a visitor to an agent.
type Resolution struct {
	SessionID string // the session id the client should keep using
	AgentName string
	Duplicate bool   // the phone already belongs to an earlier session
	New       bool   // a session was minted or reclaimed for this visitor
	Source    string // which strategy resolved it: phone-match, session-match, orphan-reclaim, fresh-assignment
}

// Resolver runs the session resolution chain. The strategies are evaluated
// in strict order so each real-world visitor consumes at most one rotation
// slot, no matter how many cookies they lose or tabs they open:
//
//  1. phone-match: a known phone wins over everything — a returning visitor
//     on a new device is still recognized.
//  2. session-match: the client-supplied id maps to an existing session.
//  3. orphan-reclaim: a fresh phoneless session is adopted instead of
//     minting a new rotation slot for a visitor whose identifier was lost.
//  4. fresh-assignment: rotate the counter and persist a new session.
type Resolver struct {
	db           *gorm.DB
	roster       *roster.Cache
	sentinel     string
	orphanWindow time.Duration
	now          func() time.Time
}

// NewResolver creates a Resolver over db using the given roster cache.
func NewResolver(db *gorm.DB, cache *roster.Cache, sentinel string, orphanWindow time.Duration) *Resolver {
	return &Resolver{
		db:           db,
		roster:       cache,
		sentinel:     sentinel,
		orphanWindow: orphanWindow,
		now:          time.Now,
	}
}

type strategy struct {
	name string
	fn   func(sessionID, phone string) (*Resolution, error)
}

// Resolve returns the agent responsible for the visitor identified by
// sessionID and/or phone. Either argument may be empty.
func (r *Resolver) Resolve(sessionID, phone string) (*Resolution, error) {
	phone = NormalizePhone(phone)

	chain := []strategy{
		{"phone-match", r.phoneMatch},
		{"session-match", r.sessionMatch},
		{"orphan-reclaim", r.orphanReclaim},
		{"fresh-assignment", r.freshAssignment},
	}
	for _, s := range chain {
		res, err := s.fn(sessionID, phone)
		if err != nil {
			return nil, fmt.Errorf("routing: %s: %w", s.name, err)
		}
		if res != nil {
			res.Source = s.name
			return res, nil
		}
	}
	return nil, fmt.Errorf("routing: no strategy resolved session %q", sessionID)
}

// ExpectedAgent returns the agent the next rotation step would pick, for
// audit messages. It never consumes a slot.
func (r *Resolver) ExpectedAgent() string {
	return rotation.Expected(r.db, r.roster.Active(), r.sentinel)
}

// phoneMatch recognizes a returning prospect by phone, regardless of which
// device or session the submission came from. The earliest session carrying
// the phone wins, matching the write-once rule.
func (r *Resolver) phoneMatch(_, phone string) (*Resolution, error) {
	if phone == "" {
		return nil, nil
	}
	var s models.Session
	err := r.db.Where("phone = ?", phone).Order("created_at ASC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Resolution{SessionID: s.SessionID, AgentName: s.AssignedAgent, Duplicate: true}, nil
}

// sessionMatch pins a known session to its agent, attaching the phone if one
// is supplied and the session has none yet.
func (r *Resolver) sessionMatch(sessionID, phone string) (*Resolution, error) {
	if sessionID == "" {
		return nil, nil
	}
	var s models.Session
	err := r.db.Where("session_id = ?", sessionID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachPhone(s.SessionID, phone); err != nil {
		return nil, err
	}
	return &Resolution{SessionID: s.SessionID, AgentName: s.AssignedAgent}, nil
}

// orphanReclaim adopts the most recent phoneless session created inside the
// orphan window. A visitor who lost their client-side identifier moments
// after it was minted gets their original agent back instead of consuming a
// second rotation slot and skewing fairness.
func (r *Resolver) orphanReclaim(_, phone string) (*Resolution, error) {
	cutoff := r.now().Add(-r.orphanWindow)
	var s models.Session
	err := r.db.Where("phone IS NULL AND created_at > ?", cutoff).
		Order("created_at DESC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachPhone(s.SessionID, phone); err != nil {
		return nil, err
	}
	return &Resolution{SessionID: s.SessionID, AgentName: s.AssignedAgent, New: true}, nil
}

// freshAssignment rotates the counter and persists a new session. The insert
// is idempotent on session id: a racing duplicate no-ops and the surviving
// row wins.
func (r *Resolver) freshAssignment(sessionID, phone string) (*Resolution, error) {
	if sessionID == "" {
		var err error
		if sessionID, err = GenerateSessionID(); err != nil {
			return nil, err
		}
	}

	assignment, err := rotation.Next(r.db, r.roster.Active(), r.sentinel)
	if err != nil {
		// Lead capture availability beats rotation fairness: degrade to the
		// sentinel instead of failing the request.
		log.Printf("routing: rotation unavailable, assigning sentinel: %v", err)
		assignment = rotation.SentinelAssignment(r.sentinel)
	}

	s := models.Session{
		SessionID:     sessionID,
		AssignedAgent: assignment.AgentName,
		CounterValue:  assignment.Post,
		CreatedAt:     r.now(),
	}
	if phone != "" {
		s.Phone = &phone
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&s)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the insert race: keep the existing row's assignment.
		var existing models.Session
		if err := r.db.Where("session_id = ?", sessionID).First(&existing).Error; err != nil {
			return nil, err
		}
		if err := r.attachPhone(existing.SessionID, phone); err != nil {
			return nil, err
		}
		return &Resolution{SessionID: existing.SessionID, AgentName: existing.AssignedAgent, New: true}, nil
	}

	return &Resolution{SessionID: s.SessionID, AgentName: s.AssignedAgent, New: true}, nil
}

// attachPhone sets the session's phone if it has none. First writer wins;
// the guard in the WHERE clause makes the write-once rule atomic.
func (r *Resolver) attachPhone(sessionID, phone string) error {
	if phone == "" {
		return nil
	}
	return r.db.Model(&models.Session{}).
		Where("session_id = ? AND phone IS NULL", sessionID).
		Update("phone", phone).Error
}

// NormalizePhone reduces a phone number to digits only.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// GenerateSessionID creates a server-side session id in sess-xxxxxxxxxxxx
// format (12-char hex).
func GenerateSessionID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("routing: generate session id: %w", err)
	}
	return "sess-" + hex.EncodeToString(b), nil
}
