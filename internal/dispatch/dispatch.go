// Package dispatch fans a resolved lead out to its independent sinks.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/funildigital/funil/internal/email"
	"github.com/funildigital/funil/internal/lead"
	"github.com/funildigital/funil/internal/models"
	"github.com/funildigital/funil/internal/notify"
	"github.com/funildigital/funil/internal/routing"
	"gorm.io/gorm"
)

// Submission holds the public form fields of one lead submission. Phone must
// already be normalized.
type Submission struct {
	Name     string
	Email    string
	Phone    string
	Course   string
	Modality string
	Message  string
}

// Dispatcher delivers a resolved submission to three independent sinks:
//
//	A — the Lead system-of-record (find-or-create + audit trail)
//	B — a human-readable email to the operations inbox
//	C — the external fallback messaging channel
//
// Every sink runs inside its own error boundary: a panic or failure in one
// never prevents the others, and none of them ever changes the HTTP response
// the caller sends. Duplicate submissions traverse only Sink C, tagged, for
// audit visibility.
type Dispatcher struct {
	db         *gorm.DB
	email      email.Service
	notifier   notify.Notifier
	appName    string
	opsAddress string

	wg sync.WaitGroup
}

// Opts holds parameters for creating a Dispatcher.
type Opts struct {
	DB         *gorm.DB
	Email      email.Service   // optional; Sink B is skipped when nil
	Notifier   notify.Notifier // optional; Sink C is skipped when nil
	AppName    string
	OpsAddress string // Sink B destination
}

// New creates a Dispatcher.
func New(opts Opts) (*Dispatcher, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("dispatch: db is required")
	}
	return &Dispatcher{
		db:         opts.DB,
		email:      opts.Email,
		notifier:   opts.Notifier,
		appName:    opts.AppName,
		opsAddress: opts.OpsAddress,
	}, nil
}

// Dispatch delivers the submission. It returns once Sink A has been
// attempted; Sinks B and C run in the background. expectedAgent is the
// rotation's would-be pick, captured before resolution, relayed on Sink C
// for audit.
func (d *Dispatcher) Dispatch(ctx context.Context, sub Submission, res *routing.Resolution, expectedAgent string) {
	notification := notify.Notification{
		SessionID:     res.SessionID,
		Agent:         res.AgentName,
		ExpectedAgent: expectedAgent,
		Phone:         sub.Phone,
		Course:        sub.Course,
		Duplicate:     res.Duplicate,
	}

	if res.Duplicate {
		// Known prospect: no new record, no email — but the fallback channel
		// still hears about it so the audit trail stays complete.
		d.spawn("fallback", func() error {
			return d.sinkFallback(ctx, notification)
		})
		return
	}

	var persisted bool
	d.runSink("persist", func() error {
		err := d.sinkPersist(sub, res)
		persisted = err == nil
		return err
	})
	if !persisted {
		log.Printf("dispatch: lead %s not persisted, response unaffected", res.SessionID)
	}

	d.spawn("email", func() error {
		return d.sinkEmail(sub, res)
	})
	d.spawn("fallback", func() error {
		return d.sinkFallback(ctx, notification)
	})
}

// Wait blocks until all background sinks have finished. Used by tests and
// graceful shutdown; request handling never waits on it.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// sinkPersist is Sink A: find-or-create the Lead and its audit events.
func (d *Dispatcher) sinkPersist(sub Submission, res *routing.Resolution) error {
	_, created, err := lead.Upsert(d.db, lead.Input{
		Name:          sub.Name,
		Email:         sub.Email,
		Phone:         sub.Phone,
		Course:        sub.Course,
		Modality:      sub.Modality,
		Message:       sub.Message,
		SessionID:     res.SessionID,
		AssignedAgent: res.AgentName,
	})
	if err != nil {
		return err
	}
	if created {
		log.Printf("dispatch: lead created for session %s, agent %s", res.SessionID, res.AgentName)
	}
	return nil
}

// sinkEmail is Sink B: the human notification to the ops inbox. The mail is
// composed from the submission itself so it goes out even when Sink A failed.
func (d *Dispatcher) sinkEmail(sub Submission, res *routing.Resolution) error {
	if d.email == nil || d.opsAddress == "" {
		return nil
	}
	l := &models.Lead{
		Name:          sub.Name,
		Email:         sub.Email,
		Phone:         sub.Phone,
		Course:        sub.Course,
		Modality:      sub.Modality,
		Message:       sub.Message,
		SessionID:     res.SessionID,
		AssignedAgent: res.AgentName,
	}
	d.email.SendMessages(email.ComposeLeadAlert(d.appName, d.opsAddress, l))
	return nil
}

// sinkFallback is Sink C: the external fallback messaging channel.
func (d *Dispatcher) sinkFallback(ctx context.Context, n notify.Notification) error {
	if d.notifier == nil {
		return nil
	}
	return d.notifier.Send(ctx, notify.Format(n))
}

// runSink executes fn inside its own error boundary.
func (d *Dispatcher) runSink(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatch: sink %s panicked: %v", name, r)
		}
	}()
	if err := fn(); err != nil {
		log.Printf("dispatch: sink %s failed: %v", name, err)
	}
}

// spawn runs fn as a background sink tracked by Wait.
func (d *Dispatcher) spawn(name string, fn func() error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runSink(name, fn)
	}()
}
