// Package sendgridmail implements the email Service on the SendGrid API.
package sendgridmail

import (
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/funildigital/funil/internal/email"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type service struct {
	key  string
	from *sgmail.Email
}

var _ email.Service = (*service)(nil)

// NewService creates a SendGrid-backed email service.
func NewService(key, appName, fromAddress string) email.Service {
	return &service{
		key:  key,
		from: sgmail.NewEmail(appName, fromAddress),
	}
}

// SendMessages delivers each message in its own goroutine. Failures are
// logged, never propagated: email is a best-effort sink.
func (svc *service) SendMessages(messages ...*email.Message) {
	for _, msg := range messages {
		go svc.send(msg)
	}
}

func (svc *service) send(msg *email.Message) {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))

	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		log.Printf("email: sendgrid: %v", err)
		return
	}
	if res.StatusCode >= http.StatusBadRequest {
		log.Printf("email: sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
}
