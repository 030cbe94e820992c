// Package notify bridges lead events to external messaging channels
// (WhatsApp relay, Slack, Discord).
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Notification carries the fields of a routed lead worth relaying. The
// expected agent records what the rotation index would have produced, so the
// ops team can audit assignments that took a shortcut (duplicate, orphan
// reclaim, session pin).
type Notification struct {
	SessionID     string
	Agent         string
	ExpectedAgent string
	Phone         string
	Course        string
	Duplicate     bool
}

// Notifier is the interface that channel-specific implementations satisfy.
type Notifier interface {
	// Send delivers a short text message to the channel, best-effort.
	Send(ctx context.Context, text string) error
}

// Format builds the short text summary relayed to the fallback channel.
func Format(n Notification) string {
	var b strings.Builder
	if n.Duplicate {
		b.WriteString("[duplicate] ")
	}
	fmt.Fprintf(&b, "Lead %s → %s", n.SessionID, n.Agent)
	if n.Phone != "" {
		fmt.Fprintf(&b, " | phone %s", n.Phone)
	}
	if n.Course != "" {
		fmt.Fprintf(&b, " | course %s", n.Course)
	}
	if n.ExpectedAgent != "" && n.ExpectedAgent != n.Agent {
		fmt.Fprintf(&b, " | rotation expected %s", n.ExpectedAgent)
	}
	return b.String()
}

// Multi fans a message out to several notifiers. Each channel is attempted
// regardless of the others' outcomes; failures are logged and the first is
// returned.
type Multi []Notifier

// Send delivers the text to every channel.
func (m Multi) Send(ctx context.Context, text string) error {
	var first error
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil {
			log.Printf("notify: %v", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
