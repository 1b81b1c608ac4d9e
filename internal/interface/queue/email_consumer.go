package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/pkg/mailer"
	mailtpl "github.com/oksasatya/go-user-management/pkg/mailer/templates"
)

// Sender delivers one rendered email. mailer.Mailgun satisfies it.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Outcome is what happens to a delivery after Handle.
type Outcome int

const (
	Ack     Outcome = iota
	Requeue         // transient failure, try again
	Drop            // poison message, never retried
)

var errUnknownEvent = errors.New("unknown event type")

// EmailConsumer turns auth events into emails.
type EmailConsumer struct {
	Sender      Sender
	AppName     string
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

func NewEmailConsumer(sender Sender, appName string, logger *logrus.Logger) *EmailConsumer {
	return &EmailConsumer{Sender: sender, AppName: appName, Logger: logger, SendTimeout: 15 * time.Second}
}

// JobFor maps an event to the email it should produce.
func (c *EmailConsumer) JobFor(evt application.AuthEvent) (mailer.EmailJob, error) {
	var tpl string
	switch evt.Type {
	case application.EventUserRegistered:
		tpl = mailtpl.Welcome
	case application.EventUserAuthenticated:
		tpl = mailtpl.LoginNotification
	default:
		return mailer.EmailJob{}, errUnknownEvent
	}
	if evt.Email == "" {
		return mailer.EmailJob{}, errors.New("event without recipient")
	}
	data := mailtpl.NewEmailData(c.AppName, evt.FirstName, evt.Email, evt.Username, evt.OccurredAt)
	return mailer.EmailJob{To: evt.Email, Template: tpl, Data: mailtpl.ToMap(data)}, nil
}

// Handle renders and sends the email for one message body.
func (c *EmailConsumer) Handle(ctx context.Context, body []byte) Outcome {
	var evt application.AuthEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		c.log().WithError(err).Warn("bad message")
		return Drop
	}
	job, err := c.JobFor(evt)
	if err != nil {
		c.log().WithError(err).WithField("type", evt.Type).Warn("skipping event")
		return Drop
	}
	subject, text, html, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		c.log().WithError(err).WithField("template", job.Template).Error("render failed")
		return Drop
	}

	if c.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.SendTimeout)
		defer cancel()
	}
	if err := c.Sender.Send(ctx, job.To, subject, text, html); err != nil {
		c.log().WithError(err).WithField("to", job.To).Warn("send failed")
		return Requeue
	}
	c.log().WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	return Ack
}

// Run consumes deliveries until the channel closes or ctx is done.
func (c *EmailConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			switch c.Handle(ctx, msg.Body) {
			case Ack:
				_ = msg.Ack(false)
			case Requeue:
				_ = msg.Nack(false, true)
			default:
				_ = msg.Nack(false, false)
			}
		}
	}
}

func (c *EmailConsumer) log() *logrus.Logger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
