package email

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jpillora/backoff"
	"github.com/newsdesk-cms/newsdesk/src/config"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	failures int
	sent     []Message
	attempts int
}

func (r *recorder) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.failures > 0 {
		r.failures--
		return errors.New("421 try again later")
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestMailer(rec *recorder) *Mailer {
	m := NewMailer(config.EmailConfig{
		FrontendUrl:  "http://localhost:3000",
		AdminAddress: "admin@example.com",
	})
	m.Transport = rec
	m.Inline = true
	m.Now = func() time.Time { return t0 }
	m.backoff = func() *backoff.Backoff {
		return &backoff.Backoff{Min: time.Millisecond, Max: time.Millisecond}
	}
	return m
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("a@b.co"))
	assert.True(t, IsEmail(" reader@example.com "))
	assert.False(t, IsEmail("a@b"))
	assert.False(t, IsEmail("a b@c.d"))
	assert.False(t, IsEmail(""))
}

func TestUnconfiguredUsesLog(t *testing.T) {
	m := NewMailer(config.EmailConfig{})
	assert.IsType(t, LogTransport{}, m.Transport)

	m = NewMailer(config.EmailConfig{ServerAddress: "smtp.example.com", ServerPort: 587})
	assert.IsType(t, &SMTPTransport{}, m.Transport)
}

func TestVerificationEmail(t *testing.T) {
	rec := &recorder{}
	m := newTestMailer(rec)

	acc := &models.Account{Username: "alice", Email: "alice@example.com"}
	m.SendVerification(context.Background(), acc, "tok123", t0.Add(24*time.Hour))

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].ToAddress)
	assert.Equal(t, "Confirm your email address", sent[0].Subject)
	assert.Contains(t, sent[0].Html, "http://localhost:3000/verify-email?token=tok123")
	assert.Contains(t, sent[0].Html, "expires in 24 hours")
}

func TestRetriesThenSucceeds(t *testing.T) {
	rec := &recorder{failures: 2}
	m := newTestMailer(rec)

	m.SendPasswordChanged(context.Background(), &models.Account{Username: "bob", Email: "bob@example.com"})
	assert.Equal(t, 3, rec.attempts)
	assert.Len(t, rec.Sent(), 1)
}

func TestGivesUpQuietly(t *testing.T) {
	rec := &recorder{failures: 100}
	m := newTestMailer(rec)

	m.SendPasswordReset(context.Background(), &models.Account{Username: "bob", Email: "bob@example.com"}, "tok", t0.Add(15*time.Minute))
	assert.Equal(t, maxAttempts, rec.attempts)
	assert.Empty(t, rec.Sent())
}

func TestFeedback(t *testing.T) {
	rec := &recorder{}
	m := newTestMailer(rec)
	ctx := context.Background()

	err := m.SendFeedback(ctx, Feedback{From: "reader@example.com", Location: "Hanoi", Content: "Great site"})
	require.NoError(t, err)
	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "admin@example.com", sent[0].ToAddress)
	assert.Contains(t, sent[0].Html, "Great site")

	err = m.SendFeedback(ctx, Feedback{From: "reader@example.com", Content: "no location"})
	assert.True(t, oops.Is(err, oops.KindInvalidInput))

	err = m.SendFeedback(ctx, Feedback{From: "not-an-email", Location: "x", Content: "y"})
	assert.Equal(t, "invalid_email", oops.CodeOf(err))

	m.AdminEmail = ""
	err = m.SendFeedback(ctx, Feedback{From: "reader@example.com", Location: "x", Content: "y"})
	assert.True(t, oops.Is(err, oops.KindInvalidState))
}

func TestQueue(t *testing.T) {
	rec := &recorder{}
	m := newTestMailer(rec)
	m.Inline = false

	job := m.StartQueue()
	for i := 0; i < 3; i++ {
		m.SendPasswordChanged(context.Background(), &models.Account{Username: "bob", Email: "bob@example.com"})
	}

	assert.Eventually(t, func() bool { return len(rec.Sent()) == 3 }, time.Second, 5*time.Millisecond)

	job.Cancel()
	select {
	case <-job.Finished():
	case <-time.After(time.Second):
		t.Fatal("email queue did not stop")
	}
}
