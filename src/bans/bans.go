/*
Package bans implements the ban lifecycle. Resolve is a pure function that
reports an account's ban state at a given instant and, for a ban that has run
out, the mutation needed to clear it. Controller applies those mutations at
every place an account is loaded, which is what makes expiry lazy: nothing
runs on a schedule to unban people.
*/
package bans

import (
	"context"
	"errors"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/perms"
)

const CodeAccountBanned = "account_banned"

type Duration string

const (
	OneDay    Duration = "1d"
	OneWeek   Duration = "1w"
	OneMonth  Duration = "1m"
	Permanent Duration = "permanent"
)

func ParseDuration(s string) (Duration, error) {
	switch d := Duration(s); d {
	case OneDay, OneWeek, OneMonth, Permanent:
		return d, nil
	}
	return "", oops.InvalidInput("unknown ban duration %q (expected 1d, 1w, 1m or permanent)", s).WithCode("invalid_duration")
}

// ExpiryFrom returns nil for permanent bans.
func (d Duration) ExpiryFrom(now time.Time) *time.Time {
	var length time.Duration
	switch d {
	case OneDay:
		length = 24 * time.Hour
	case OneWeek:
		length = 7 * 24 * time.Hour
	case OneMonth:
		length = 30 * 24 * time.Hour
	default:
		return nil
	}
	expiry := now.Add(length)
	return &expiry
}

type State int

const (
	Active State = iota
	Banned
)

func (s State) String() string {
	if s == Banned {
		return "banned"
	}
	return "active"
}

type Status struct {
	State     State
	Reason    string
	ExpiresAt *time.Time
}

// Mutation clears a ban that expired at ExpiredAt. Stores apply it only if
// the ban on record still has that expiry, so a fresh ban is never wiped.
type Mutation struct {
	ExpiredAt time.Time
}

func (m *Mutation) ApplyTo(acc *models.Account) {
	acc.Ban = models.Ban{}
}

func Resolve(acc *models.Account, now time.Time) (Status, *Mutation) {
	if !acc.IsBanned {
		return Status{State: Active}, nil
	}
	if acc.ExpiresAt != nil && !acc.ExpiresAt.After(now) {
		return Status{State: Active}, &Mutation{ExpiredAt: *acc.ExpiresAt}
	}
	return Status{
		State:     Banned,
		Reason:    acc.Reason,
		ExpiresAt: acc.ExpiresAt,
	}, nil
}

/*
Plan computes the ban record for banning target. Admins can never be banned,
which also covers an admin trying to ban themselves.
*/
func Plan(actor models.Identity, target *models.Account, reason string, d Duration, now time.Time) (models.Ban, error) {
	if target.Role == models.RoleAdmin {
		return models.Ban{}, oops.InvalidState("admins cannot be banned").WithCode("cannot_ban_admin")
	}
	bannedBy := actor.AccountID
	bannedAt := now
	return models.Ban{
		IsBanned:  true,
		Reason:    reason,
		ExpiresAt: d.ExpiryFrom(now),
		BannedBy:  &bannedBy,
		BannedAt:  &bannedAt,
	}, nil
}

// BannedError is what a banned account sees. It carries the reason and the
// expiry so clients can render a countdown.
func BannedError(status Status) error {
	err := oops.Forbidden("your account is banned").
		WithCode(CodeAccountBanned).
		WithDetail("reason", status.Reason)
	if status.ExpiresAt != nil {
		err.WithDetail("expiresAt", status.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		err.WithDetail("expiresAt", nil)
	}
	return err
}

type Store interface {
	GetAccount(ctx context.Context, id int) (*models.Account, error)
	SetBan(ctx context.Context, accountID int, ban models.Ban) error
	ClearExpiredBan(ctx context.Context, accountID int, expiredAt time.Time) error
}

type Controller struct {
	Store Store
	Now   func() time.Time
}

func NewController(store Store, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{Store: store, Now: now}
}

/*
Refresh resolves the account's ban state and, if the ban has expired, clears
it in the store and on acc before returning. Calling it again afterwards is a
no-op that still reports Active.
*/
func (c *Controller) Refresh(ctx context.Context, acc *models.Account) (Status, error) {
	status, mutation := Resolve(acc, c.Now())
	if mutation != nil {
		if err := c.Store.ClearExpiredBan(ctx, acc.ID, mutation.ExpiredAt); err != nil {
			return Status{}, oops.New(err, "failed to clear expired ban for account %d", acc.ID)
		}
		mutation.ApplyTo(acc)
	}
	return status, nil
}

// Gate refreshes the ban state and rejects the account if it is still banned.
func (c *Controller) Gate(ctx context.Context, acc *models.Account) error {
	status, err := c.Refresh(ctx, acc)
	if err != nil {
		return err
	}
	if status.State == Banned {
		return BannedError(status)
	}
	return nil
}

func (c *Controller) Ban(ctx context.Context, actor models.Identity, targetID int, reason string, duration string) (*models.Account, error) {
	if err := perms.Require(actor, perms.AccountBan); err != nil {
		return nil, err
	}
	d, err := ParseDuration(duration)
	if err != nil {
		return nil, err
	}

	target, err := getAccount(ctx, c.Store, targetID)
	if err != nil {
		return nil, err
	}

	ban, err := Plan(actor, target, reason, d, c.Now())
	if err != nil {
		return nil, err
	}
	if err := c.Store.SetBan(ctx, target.ID, ban); err != nil {
		if errors.Is(err, models.ErrAdminNotBannable) {
			// Promoted after we read it.
			return nil, oops.InvalidState("admins cannot be banned").WithCode("cannot_ban_admin")
		}
		return nil, oops.New(err, "failed to ban account %d", target.ID)
	}
	target.Ban = ban
	return target, nil
}

func (c *Controller) Unban(ctx context.Context, actor models.Identity, targetID int) (*models.Account, error) {
	if err := perms.Require(actor, perms.AccountBan); err != nil {
		return nil, err
	}
	target, err := getAccount(ctx, c.Store, targetID)
	if err != nil {
		return nil, err
	}
	if err := c.Store.SetBan(ctx, target.ID, models.Ban{}); err != nil {
		return nil, oops.New(err, "failed to unban account %d", target.ID)
	}
	target.Ban = models.Ban{}
	return target, nil
}

func getAccount(ctx context.Context, store Store, id int) (*models.Account, error) {
	acc, err := store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, oops.NotFound("account %d not found", id).WithCode("account_not_found")
		}
		return nil, oops.New(err, "failed to fetch account %d", id)
	}
	return acc, nil
}
