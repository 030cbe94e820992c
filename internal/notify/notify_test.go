package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	n := Notification{
		SessionID:     "sess-abc123",
		Agent:         "Bob",
		ExpectedAgent: "Carol",
		Phone:         "11999990000",
		Course:        "Direito",
	}
	got := Format(n)
	for _, needle := range []string{"sess-abc123", "Bob", "11999990000", "Direito", "rotation expected Carol"} {
		if !strings.Contains(got, needle) {
			t.Errorf("Format() = %q, missing %q", got, needle)
		}
	}
	if strings.Contains(got, "[duplicate]") {
		t.Errorf("Format() = %q, should not tag non-duplicates", got)
	}
}

func TestFormat_Duplicate(t *testing.T) {
	got := Format(Notification{SessionID: "sess-x", Agent: "Bob", Duplicate: true})
	if !strings.HasPrefix(got, "[duplicate] ") {
		t.Errorf("Format() = %q, want [duplicate] prefix", got)
	}
}

func TestFormat_OmitsMatchingExpectedAgent(t *testing.T) {
	got := Format(Notification{SessionID: "sess-x", Agent: "Bob", ExpectedAgent: "Bob"})
	if strings.Contains(got, "rotation expected") {
		t.Errorf("Format() = %q, expected-agent note is noise when it matches", got)
	}
}

// recorder implements Notifier and records calls.
type recorder struct {
	texts []string
	err   error
}

func (r *recorder) Send(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return r.err
}

func TestMulti_SendsToAllChannels(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b}
	if err := m.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(a.texts) != 1 || len(b.texts) != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", len(a.texts), len(b.texts))
	}
}

func TestMulti_OneFailureDoesNotStopOthers(t *testing.T) {
	a := &recorder{err: errors.New("relay down")}
	b := &recorder{}
	m := Multi{a, b}

	err := m.Send(context.Background(), "hello")
	if err == nil {
		t.Error("Send should surface the first failure")
	}
	if len(b.texts) != 1 {
		t.Error("second channel should still be attempted")
	}
}
