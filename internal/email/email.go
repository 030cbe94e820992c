// Package email defines the outbound mail abstraction and message composition.
package email

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/funildigital/funil/internal/models"
)

// Message is a single outbound email.
type Message struct {
	To          []string
	Subject     string
	TextContent string
}

// Service is any service that can send emails. Implementations deliver
// asynchronously and never let a delivery failure escape their boundary.
type Service interface {
	// SendMessages sends messages concurrently, best-effort.
	SendMessages(messages ...*Message)
}

// ComposeLeadAlert renders the human-readable notification mail for a newly
// captured lead, addressed to the operations inbox.
func ComposeLeadAlert(appName, opsAddress string, l *models.Lead) *Message {
	var b strings.Builder
	fmt.Fprintf(&b, "New lead: %s\n\n", l.Name)
	fmt.Fprintf(&b, "Phone:    %s\n", l.Phone)
	if l.Email != "" {
		fmt.Fprintf(&b, "Email:    %s\n", l.Email)
	}
	if l.Course != "" {
		fmt.Fprintf(&b, "Course:   %s\n", l.Course)
	}
	if l.Modality != "" {
		fmt.Fprintf(&b, "Modality: %s\n", l.Modality)
	}
	fmt.Fprintf(&b, "Agent:    %s\n", l.AssignedAgent)
	fmt.Fprintf(&b, "Session:  %s\n", l.SessionID)
	if l.Message != "" {
		fmt.Fprintf(&b, "\nMessage:\n%s\n", l.Message)
	}

	return &Message{
		To:          []string{opsAddress},
		Subject:     fmt.Sprintf("[%s] New lead: %s → %s", appName, l.Name, l.AssignedAgent),
		TextContent: b.String(),
	}
}

// Console is the development Service: it writes messages to an io.Writer
// instead of delivering them.
type Console struct {
	Out io.Writer

	mu sync.Mutex
}

// SendMessages writes each message to the console writer.
func (c *Console) SendMessages(messages ...*Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range messages {
		if _, err := fmt.Fprintf(c.Out, "--- email to %s ---\nSubject: %s\n%s\n",
			strings.Join(msg.To, ", "), msg.Subject, msg.TextContent); err != nil {
			log.Printf("email: console write: %v", err)
		}
	}
}
