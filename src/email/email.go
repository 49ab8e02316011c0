package email

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/newsdesk-cms/newsdesk/src/config"
	"github.com/newsdesk-cms/newsdesk/src/jobs"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/newsurl"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/templates"
	"github.com/newsdesk-cms/newsdesk/src/utils"
	"gopkg.in/gomail.v2"
)

const (
	queueSize   = 256
	maxAttempts = 4
)

var EmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsEmail(address string) bool {
	return EmailRegex.MatchString(strings.TrimSpace(address))
}

type Message struct {
	ToAddress string
	ToName    string
	Subject   string
	Html      string
}

// Transport hands a rendered message to whatever actually delivers it.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPTransport struct {
	Dialer         *gomail.Dialer
	FromAddress    string
	FromName       string
	ForceToAddress string
}

func NewSMTPTransport(cfg config.EmailConfig) *SMTPTransport {
	return &SMTPTransport{
		Dialer:         gomail.NewDialer(cfg.ServerAddress, cfg.ServerPort, cfg.MailerUsername, cfg.MailerPassword),
		FromAddress:    cfg.FromAddress,
		FromName:       cfg.FromName,
		ForceToAddress: cfg.ForceToAddress,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	to := msg.ToAddress
	if t.ForceToAddress != "" {
		to = t.ForceToAddress
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.FromAddress, t.FromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", to, msg.ToName)
	} else {
		m.SetHeader("To", to)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/html", msg.Html)

	if err := t.Dialer.DialAndSend(m); err != nil {
		return oops.New(err, "failed to send email")
	}
	return nil
}

// LogTransport is used when no SMTP server is configured. Mail shows up in
// the log instead of anyone's inbox.
type LogTransport struct{}

func (LogTransport) Send(ctx context.Context, msg Message) error {
	logging.ExtractLogger(ctx).Info().
		Str("to", msg.ToAddress).
		Str("subject", msg.Subject).
		Int("html bytes", len(msg.Html)).
		Msg("Email not sent; SMTP is not configured")
	return nil
}

/*
Mailer renders the site's emails and queues them for delivery. Sending is
fire-and-forget: callers never see delivery errors. A failed delivery is
retried with backoff a few times and then logged and dropped.
*/
type Mailer struct {
	Transport   Transport
	FrontendUrl string
	AdminEmail  string
	Now         func() time.Time

	// Inline skips the queue and sends on the caller's goroutine.
	Inline bool

	queue   chan Message
	backoff func() *backoff.Backoff
}

func NewMailer(cfg config.EmailConfig) *Mailer {
	var transport Transport = LogTransport{}
	if cfg.Configured() {
		transport = NewSMTPTransport(cfg)
	}
	return &Mailer{
		Transport:   transport,
		FrontendUrl: cfg.FrontendUrl,
		AdminEmail:  cfg.AdminAddress,
		Now:         time.Now,
		queue:       make(chan Message, queueSize),
		backoff: func() *backoff.Backoff {
			return &backoff.Backoff{
				Min:    1 * time.Second,
				Max:    30 * time.Second,
				Factor: 2,
				Jitter: true,
			}
		},
	}
}

/*
StartQueue delivers queued mail until the job is canceled. Whatever is still
queued at that point is sent once, without retries, before the job finishes.
*/
func (m *Mailer) StartQueue() *jobs.Job {
	job := jobs.New("email queue")
	go func() {
		defer job.Finish()
		for {
			select {
			case msg := <-m.queue:
				m.deliver(job.Ctx, msg)
			case <-job.Canceled():
				m.flush()
				return
			}
		}
	}()
	return job
}

func (m *Mailer) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-m.queue:
			if err := m.Transport.Send(ctx, msg); err != nil {
				logging.Error().Err(err).Str("to", msg.ToAddress).Msg("Dropped email during shutdown")
			}
		default:
			return
		}
	}
}

func (m *Mailer) deliver(ctx context.Context, msg Message) {
	boff := m.backoff()
	for attempt := 1; ; attempt++ {
		err := func() (err error) {
			defer utils.RecoverPanicAsError(&err)
			return m.Transport.Send(ctx, msg)
		}()
		if err == nil {
			return
		}

		log := logging.ExtractLogger(ctx).Error().Err(err).
			Str("to", msg.ToAddress).
			Str("subject", msg.Subject).
			Int("attempt", attempt)
		if attempt >= maxAttempts {
			log.Msg("Giving up on email")
			return
		}
		dur := boff.Duration()
		log.Dur("retrying after", dur).Msg("Failed to send email")
		if utils.SleepContext(ctx, dur) != nil {
			return
		}
	}
}

func (m *Mailer) enqueue(ctx context.Context, msg Message) {
	if m.Inline {
		m.deliver(ctx, msg)
		return
	}
	select {
	case m.queue <- msg:
	default:
		logging.ExtractLogger(ctx).Error().Str("to", msg.ToAddress).Msg("Email queue is full; dropping email")
	}
}

func (m *Mailer) render(ctx context.Context, name string, data any) (string, bool) {
	t, err := templates.GetTemplate(name)
	if err == nil {
		var buf bytes.Buffer
		if err = t.Execute(&buf, data); err == nil {
			return buf.String(), true
		}
	}
	logging.ExtractLogger(ctx).Error().Err(oops.New(err, "failed to render email template %s", name)).Msg("Email not sent")
	return "", false
}

type VerificationEmailData struct {
	Username  string
	VerifyUrl string
	Now       time.Time
	Expires   time.Time
}

func (m *Mailer) SendVerification(ctx context.Context, to *models.Account, token string, expires time.Time) {
	html, ok := m.render(ctx, "email_verification.html", VerificationEmailData{
		Username:  to.Username,
		VerifyUrl: newsurl.BuildFrontendVerifyEmail(m.FrontendUrl, token),
		Now:       m.Now(),
		Expires:   expires,
	})
	if !ok {
		return
	}
	m.enqueue(ctx, Message{
		ToAddress: to.Email,
		ToName:    to.Username,
		Subject:   "Confirm your email address",
		Html:      html,
	})
}

type PasswordResetEmailData struct {
	Username string
	ResetUrl string
	Now      time.Time
	Expires  time.Time
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to *models.Account, token string, expires time.Time) {
	html, ok := m.render(ctx, "email_password_reset.html", PasswordResetEmailData{
		Username: to.Username,
		ResetUrl: newsurl.BuildFrontendResetPassword(m.FrontendUrl, token),
		Now:      m.Now(),
		Expires:  expires,
	})
	if !ok {
		return
	}
	m.enqueue(ctx, Message{
		ToAddress: to.Email,
		ToName:    to.Username,
		Subject:   "Reset your password",
		Html:      html,
	})
}

type PasswordChangedEmailData struct {
	Username  string
	ChangedAt time.Time
}

func (m *Mailer) SendPasswordChanged(ctx context.Context, to *models.Account) {
	html, ok := m.render(ctx, "email_password_changed.html", PasswordChangedEmailData{
		Username:  to.Username,
		ChangedAt: m.Now(),
	})
	if !ok {
		return
	}
	m.enqueue(ctx, Message{
		ToAddress: to.Email,
		ToName:    to.Username,
		Subject:   "Your password was changed",
		Html:      html,
	})
}

type Feedback struct {
	From     string
	Location string
	Content  string
}

type FeedbackEmailData struct {
	Feedback
	ReceivedAt time.Time
}

// SendFeedback forwards a reader's feedback to the admin address.
func (m *Mailer) SendFeedback(ctx context.Context, fb Feedback) error {
	fb.From = strings.TrimSpace(fb.From)
	fb.Location = strings.TrimSpace(fb.Location)
	fb.Content = strings.TrimSpace(fb.Content)
	if fb.From == "" || fb.Location == "" || fb.Content == "" {
		return oops.InvalidInput("email, location and content are all required").WithCode("invalid_feedback")
	}
	if !IsEmail(fb.From) {
		return oops.InvalidInput("invalid email address").WithCode("invalid_email")
	}
	if m.AdminEmail == "" {
		return oops.InvalidState("feedback is not accepted on this server").WithCode("feedback_unconfigured")
	}

	html, ok := m.render(ctx, "email_feedback.html", FeedbackEmailData{
		Feedback:   fb,
		ReceivedAt: m.Now(),
	})
	if !ok {
		return oops.New(nil, "failed to render feedback email")
	}
	m.enqueue(ctx, Message{
		ToAddress: m.AdminEmail,
		Subject:   fmt.Sprintf("Feedback from %s", fb.From),
		Html:      html,
	})
	return nil
}
