// Package digest builds the daily lead summary mailed to the ops inbox.
package digest

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/funildigital/funil/internal/email"
	"github.com/funildigital/funil/internal/models"
	"gorm.io/gorm"
)

// Report holds computed lead metrics for a 24-hour period.
type Report struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	LeadsCaptured  int
	SessionsOpened int
	PendingTotal   int
	AgentBreakdown []AgentCount
}

// AgentCount holds per-agent lead counts for the period.
type AgentCount struct {
	Agent string
	Leads int
}

// BuildReport queries lead and session activity within the given time range.
func BuildReport(db *gorm.DB, since, until time.Time) (*Report, error) {
	report := &Report{
		PeriodStart: since,
		PeriodEnd:   until,
	}

	var captured int64
	if err := db.Model(&models.Lead{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&captured).Error; err != nil {
		return nil, fmt.Errorf("digest: count leads: %w", err)
	}
	report.LeadsCaptured = int(captured)

	var opened int64
	if err := db.Model(&models.Session{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&opened).Error; err != nil {
		return nil, fmt.Errorf("digest: count sessions: %w", err)
	}
	report.SessionsOpened = int(opened)

	var pending int64
	if err := db.Model(&models.Lead{}).
		Where("status = ?", "pending").
		Count(&pending).Error; err != nil {
		return nil, fmt.Errorf("digest: count pending: %w", err)
	}
	report.PendingTotal = int(pending)

	var rows []struct {
		AssignedAgent string
		Total         int64
	}
	if err := db.Model(&models.Lead{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Select("assigned_agent, COUNT(*) as total").
		Group("assigned_agent").
		Order("assigned_agent").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("digest: agent breakdown: %w", err)
	}
	for _, row := range rows {
		agent := row.AssignedAgent
		if agent == "" {
			agent = "(unassigned)"
		}
		report.AgentBreakdown = append(report.AgentBreakdown, AgentCount{
			Agent: agent,
			Leads: int(row.Total),
		})
	}

	return report, nil
}

// Compose renders the report as the digest email.
func Compose(appName, opsAddress string, report *Report) *email.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Period: %s – %s\n\n",
		report.PeriodStart.Format("Jan 2 15:04"),
		report.PeriodEnd.Format("Jan 2 15:04"))
	fmt.Fprintf(&b, "Leads captured:  %d\n", report.LeadsCaptured)
	fmt.Fprintf(&b, "Sessions opened: %d\n", report.SessionsOpened)
	fmt.Fprintf(&b, "Pending total:   %d\n", report.PendingTotal)

	if len(report.AgentBreakdown) > 0 {
		b.WriteString("\nPer agent:\n")
		for _, ac := range report.AgentBreakdown {
			fmt.Fprintf(&b, "  %s: %d\n", ac.Agent, ac.Leads)
		}
	}

	return &email.Message{
		To:          []string{opsAddress},
		Subject:     fmt.Sprintf("[%s] Daily digest: %d leads", appName, report.LeadsCaptured),
		TextContent: b.String(),
	}
}

// Job computes and mails the daily digest. It is registered with the serve
// command's cron scheduler.
type Job struct {
	DB         *gorm.DB
	Email      email.Service
	AppName    string
	OpsAddress string

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Run builds the report for the trailing 24 hours and sends it. Periods with
// no lead or session activity are suppressed. Errors are logged; the
// scheduler has no use for them.
func (j *Job) Run() {
	if j.Email == nil || j.OpsAddress == "" {
		return
	}
	now := time.Now()
	if j.Now != nil {
		now = j.Now()
	}
	since := now.Add(-24 * time.Hour)

	report, err := BuildReport(j.DB, since, now)
	if err != nil {
		log.Printf("digest: %v", err)
		return
	}
	if report.LeadsCaptured == 0 && report.SessionsOpened == 0 {
		return
	}
	j.Email.SendMessages(Compose(j.AppName, j.OpsAddress, report))
}
