package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/bans"
	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/jobs"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

type Store interface {
	bans.Store
	TouchAccount(ctx context.Context, accountID int, now time.Time) error
	MarkIdleOffline(ctx context.Context, lastActiveBefore time.Time) (int64, error)
}

// Session is the resolved caller for one request. Identity carries the role
// as it is in the store right now, not the role the token was issued with.
type Session struct {
	Identity models.Identity
	Account  *models.Account

	// When the token behind the session stops being valid.
	ExpiresAt time.Time
}

type Manager struct {
	Store      Store
	Bans       *bans.Controller
	Tokens     *TokenIssuer
	SessionTTL time.Duration
	StaleAfter time.Duration
	Now        func() time.Time
}

func (m *Manager) IssueSession(acc *models.Account) (string, time.Time, error) {
	return m.Tokens.Issue(PurposeSession, acc.ID, acc.Role, m.SessionTTL)
}

/*
Authenticate verifies a session token and loads its account fresh from the
store. An expired ban is cleared on the way through. On success the account
is marked online with its last activity set to now.

It does not reject banned accounts; that is the ban gate's job, so that a
banned caller still gets told why they are banned.
*/
func (m *Manager) Authenticate(ctx context.Context, rawToken string) (*Session, error) {
	claims, err := m.Tokens.Verify(rawToken, PurposeSession)
	if err != nil {
		return nil, err
	}

	acc, err := m.Store.GetAccount(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			// Account was deleted after the token was issued.
			return nil, oops.Unauthorized("token is invalid").WithCode(CodeTokenInvalid)
		}
		return nil, oops.New(err, "failed to load account for session")
	}

	if _, err := m.Bans.Refresh(ctx, acc); err != nil {
		return nil, err
	}

	now := m.Now()
	if err := m.Store.TouchAccount(ctx, acc.ID, now); err != nil {
		return nil, oops.New(err, "failed to record activity")
	}
	acc.IsOnline = true
	acc.LastActivity = now

	return &Session{
		Identity:  acc.Identity(),
		Account:   acc,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

/*
Check re-validates a session that outlives its request, like a notification
stream. It fails once the token has expired, the account is gone, or the
account is banned. The session's account is replaced with the fresh copy.
*/
func (m *Manager) Check(ctx context.Context, sess *Session) error {
	if !m.Now().Before(sess.ExpiresAt) {
		return oops.Unauthorized("token has expired").WithCode(CodeTokenExpired)
	}
	acc, err := m.Store.GetAccount(ctx, sess.Identity.AccountID)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return oops.Unauthorized("token is invalid").WithCode(CodeTokenInvalid)
		}
		return oops.New(err, "failed to reload account for session")
	}
	if err := m.Bans.Gate(ctx, acc); err != nil {
		return err
	}
	sess.Account = acc
	sess.Identity = acc.Identity()
	return nil
}

// TokenFromHeader pulls the token out of an "Authorization: Bearer ..." value.
func TokenFromHeader(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// SweepPresence marks everyone idle for longer than StaleAfter as offline.
func (m *Manager) SweepPresence(ctx context.Context) (int64, error) {
	n, err := m.Store.MarkIdleOffline(ctx, m.Now().Add(-m.StaleAfter))
	if err != nil {
		return 0, oops.New(err, "failed to mark idle accounts offline")
	}
	return n, nil
}

/*
StartPresenceSweep runs SweepPresence every interval. If the store is down
the tick is logged and skipped; the next tick tries again.
*/
func (m *Manager) StartPresenceSweep(interval time.Duration) *jobs.Job {
	return jobs.Every("presence sweep", interval, func(ctx context.Context) error {
		n, err := m.SweepPresence(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logging.ExtractLogger(ctx).Info().Int64("num offline", n).Msg("Marked idle accounts offline")
		}
		return nil
	})
}
