package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/pkg/helpers"
	mailtpl "github.com/oksasatya/go-user-management/pkg/mailer/templates"
)

type sentMail struct{ to, subject, text, html string }

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, text, html})
	return nil
}

type ackRecorder struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func eventBody(t *testing.T, typ string) []byte {
	t.Helper()
	b, err := json.Marshal(application.AuthEvent{
		Type: typ, UserID: "u1", Email: "alice@x.io", Username: "alice", FirstName: "Alice",
		OccurredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func TestJobFor(t *testing.T) {
	c := NewEmailConsumer(&fakeSender{}, "Users", helpers.NopLogger())

	job, err := c.JobFor(application.AuthEvent{Type: application.EventUserRegistered, Email: "a@x.io", Username: "a"})
	require.NoError(t, err)
	assert.Equal(t, mailtpl.Welcome, job.Template)
	assert.Equal(t, "a@x.io", job.To)
	assert.Equal(t, "a", job.Data["Name"])

	job, err = c.JobFor(application.AuthEvent{Type: application.EventUserAuthenticated, Email: "a@x.io"})
	require.NoError(t, err)
	assert.Equal(t, mailtpl.LoginNotification, job.Template)

	_, err = c.JobFor(application.AuthEvent{Type: "user.deleted", Email: "a@x.io"})
	assert.Error(t, err)
	_, err = c.JobFor(application.AuthEvent{Type: application.EventUserRegistered})
	assert.Error(t, err)
}

func TestHandle(t *testing.T) {
	sender := &fakeSender{}
	c := NewEmailConsumer(sender, "Users", helpers.NopLogger())
	ctx := context.Background()

	assert.Equal(t, Ack, c.Handle(ctx, eventBody(t, application.EventUserRegistered)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@x.io", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].subject, "Alice")
	assert.NotEmpty(t, sender.sent[0].html)

	assert.Equal(t, Ack, c.Handle(ctx, eventBody(t, application.EventUserAuthenticated)))
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].text, "alice@x.io")

	assert.Equal(t, Drop, c.Handle(ctx, []byte("{not json")))
	assert.Equal(t, Drop, c.Handle(ctx, eventBody(t, "user.deleted")))

	sender.err = errors.New("mailgun down")
	assert.Equal(t, Requeue, c.Handle(ctx, eventBody(t, application.EventUserRegistered)))
}

func TestRun(t *testing.T) {
	sender := &fakeSender{}
	c := NewEmailConsumer(sender, "Users", helpers.NopLogger())
	acks := &ackRecorder{}

	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: eventBody(t, application.EventUserRegistered)}
	msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte("garbage")}
	close(msgs)

	c.Run(context.Background(), msgs)
	assert.Equal(t, []uint64{1}, acks.acked)
	assert.Equal(t, []uint64{2}, acks.nacked)
	assert.Equal(t, []bool{false}, acks.requeue)

	sender.err = errors.New("down")
	retry := make(chan amqp.Delivery, 1)
	retry <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 3, Body: eventBody(t, application.EventUserAuthenticated)}
	close(retry)
	c.Run(context.Background(), retry)
	assert.Equal(t, []uint64{2, 3}, acks.nacked)
	assert.Equal(t, []bool{false, true}, acks.requeue)
}

func TestRunStopsOnCancel(t *testing.T) {
	c := NewEmailConsumer(&fakeSender{}, "Users", helpers.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx, make(chan amqp.Delivery))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
