/*
Package accounts covers everything a person does with their own account
(registering, verifying, logging in and out, resetting and changing their
password, editing their profile) and the admin side of account management.
*/
package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/bans"
	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/images"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/perms"
)

const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultResetTTL        = 15 * time.Minute
)

type Store interface {
	bans.Store
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	GetAccountByVerificationToken(ctx context.Context, token string) (*models.Account, error)
	GetAccountByResetToken(ctx context.Context, token string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	CreateAccount(ctx context.Context, acc *models.Account) error
	UpdateAccount(ctx context.Context, acc *models.Account) error
	TouchAccount(ctx context.Context, accountID int, now time.Time) error
	SetOffline(ctx context.Context, accountID int) error
	DeleteAccount(ctx context.Context, accountID int) error
	ListLikedArticles(ctx context.Context, accountID int) ([]*models.Article, error)
	RemoveLikesByAccount(ctx context.Context, accountID int) error

	CountAccounts(ctx context.Context) (int, error)
	CountArticles(ctx context.Context, authorID *int) (int, error)
	CountComments(ctx context.Context) (int, error)
	CountCategories(ctx context.Context) (int, error)
	TotalViews(ctx context.Context, authorID *int) (int, error)
}

// Mailer is satisfied by *email.Mailer. Sends never fail from the caller's
// point of view.
type Mailer interface {
	SendVerification(ctx context.Context, to *models.Account, token string, expires time.Time)
	SendPasswordReset(ctx context.Context, to *models.Account, token string, expires time.Time)
	SendPasswordChanged(ctx context.Context, to *models.Account)
}

type AuthoredContent interface {
	DeleteByAuthor(ctx context.Context, authorID int) (int, error)
}

type RecipientNotifications interface {
	DeleteForRecipient(ctx context.Context, recipientID int) (int64, error)
}

type Service struct {
	Store    Store
	Sessions *auth.Manager
	Bans     *bans.Controller
	Tokens   *auth.TokenIssuer
	Mailer   Mailer
	Images   images.Host

	// Cleaned up when an account is deleted.
	Articles      AuthoredContent
	Comments      AuthoredContent
	Notifications RecipientNotifications

	VerificationTTL time.Duration
	ResetTTL        time.Duration
	Now             func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) images() images.Host {
	if s.Images == nil {
		return images.Disabled{}
	}
	return s.Images
}

func notFound(id int) error {
	return oops.NotFound("account %d not found", id).WithCode("account_not_found")
}

func (s *Service) get(ctx context.Context, id int) (*models.Account, error) {
	acc, err := s.Store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, notFound(id)
		}
		return nil, oops.New(err, "failed to fetch account %d", id)
	}
	return acc, nil
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

/*
Register creates an unverified reader account and mails it a verification
link. The account cannot log in until the link is used.
*/
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	username, err := CleanUsername(in.Username)
	if err != nil {
		return nil, err
	}
	address, err := CleanEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(in.Password); err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, 0, address, username); err != nil {
		return nil, err
	}

	now := s.now()
	acc := &models.Account{
		Username:     username,
		Email:        address,
		Password:     auth.HashPassword(in.Password).String(),
		Role:         models.RoleUser,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.CreateAccount(ctx, acc); err != nil {
		if oops.Is(err, oops.KindConflict) {
			return nil, err
		}
		return nil, oops.New(err, "failed to create account")
	}

	token, expires, err := s.Tokens.Issue(auth.PurposeVerification, acc.ID, acc.Role, s.verificationTTL())
	if err != nil {
		return nil, err
	}
	acc.VerificationToken = &token
	acc.VerificationExpires = &expires
	if err := s.Store.UpdateAccount(ctx, acc); err != nil {
		return nil, oops.New(err, "failed to save verification token")
	}

	s.Mailer.SendVerification(ctx, acc, token, expires)
	logging.ExtractLogger(ctx).Info().Int("account id", acc.ID).Str("username", acc.Username).Msg("Registered new account")
	return acc, nil
}

func (s *Service) verificationTTL() time.Duration {
	if s.VerificationTTL <= 0 {
		return DefaultVerificationTTL
	}
	return s.VerificationTTL
}

func (s *Service) resetTTL() time.Duration {
	if s.ResetTTL <= 0 {
		return DefaultResetTTL
	}
	return s.ResetTTL
}

// checkUnique reports a conflict if another account already uses the email
// or username. Empty values are not checked.
func (s *Service) checkUnique(ctx context.Context, selfID int, address, username string) error {
	if address != "" {
		existing, err := s.Store.GetAccountByEmail(ctx, address)
		if err == nil && existing.ID != selfID {
			return oops.Conflict("email is already registered").WithCode("email_taken")
		} else if err != nil && !errors.Is(err, db.NotFound) {
			return oops.New(err, "failed to check email")
		}
	}
	if username != "" {
		existing, err := s.Store.GetAccountByUsername(ctx, username)
		if err == nil && existing.ID != selfID {
			return oops.Conflict("username is already taken").WithCode("username_taken")
		} else if err != nil && !errors.Is(err, db.NotFound) {
			return oops.New(err, "failed to check username")
		}
	}
	return nil
}

// lookupByToken verifies a one-time token and finds the account it was
// stored on. Any mismatch is reported the same way.
func (s *Service) lookupByToken(
	ctx context.Context,
	raw string,
	purpose auth.TokenPurpose,
	find func(ctx context.Context, token string) (*models.Account, error),
) (*models.Account, error) {
	invalid := oops.InvalidInput("this link is invalid or has expired").WithCode(auth.CodeTokenInvalid)
	if raw == "" {
		return nil, invalid
	}
	claims, err := s.Tokens.Verify(raw, purpose)
	if err != nil {
		return nil, invalid
	}
	acc, err := find(ctx, raw)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, invalid
		}
		return nil, oops.New(err, "failed to look up token")
	}
	if acc.ID != claims.AccountID {
		return nil, invalid
	}
	return acc, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.Account, error) {
	acc, err := s.lookupByToken(ctx, token, auth.PurposeVerification, s.Store.GetAccountByVerificationToken)
	if err != nil {
		return nil, err
	}
	if acc.VerificationExpires != nil && !acc.VerificationExpires.After(s.now()) {
		return nil, oops.InvalidInput("this link is invalid or has expired").WithCode(auth.CodeTokenInvalid)
	}

	acc.IsVerified = true
	acc.VerificationToken = nil
	acc.VerificationExpires = nil
	acc.UpdatedAt = s.now()
	if err := s.Store.UpdateAccount(ctx, acc); err != nil {
		return nil, oops.New(err, "failed to verify account %d", acc.ID)
	}
	return acc, nil
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *models.Account
}

/*
Login checks credentials, then verification, then bans, in that order. An
expired ban is cleared here so a returning user is let straight in.
*/
func (s *Service) Login(ctx context.Context, address, password string) (*LoginResult, error) {
	badCredentials := oops.Unauthorized("invalid email or password").WithCode("bad_credentials")

	acc, err := s.Store.GetAccountByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, badCredentials
		}
		return nil, oops.New(err, "failed to look up account")
	}
	ok, err := auth.CheckPasswordString(password, acc.Password)
	if err != nil {
		return nil, oops.New(err, "failed to check password for account %d", acc.ID)
	}
	if !ok {
		return nil, badCredentials
	}

	if !acc.IsVerified {
		return nil, oops.Forbidden("please verify your email before logging in").
			WithCode("requires_verification").
			WithDetail("requiresVerification", true)
	}

	if err := s.Bans.Gate(ctx, acc); err != nil {
		return nil, err
	}

	token, expires, err := s.Sessions.IssueSession(acc)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.Store.TouchAccount(ctx, acc.ID, now); err != nil {
		return nil, oops.New(err, "failed to record login")
	}
	acc.IsOnline = true
	acc.LastActivity = now

	return &LoginResult{Token: token, ExpiresAt: expires, Account: acc}, nil
}

// Logout only changes presence. Session tokens are stateless and stay valid
// until they expire.
func (s *Service) Logout(ctx context.Context, actor models.Identity) error {
	if err := s.Store.SetOffline(ctx, actor.AccountID); err != nil {
		if errors.Is(err, db.NotFound) {
			return nil
		}
		return oops.New(err, "failed to log out account %d", actor.AccountID)
	}
	return nil
}

/*
ForgotPassword mails a reset link. It says nothing about whether the address
is registered.
*/
func (s *Service) ForgotPassword(ctx context.Context, address string) error {
	address, err := CleanEmail(address)
	if err != nil {
		return err
	}
	acc, err := s.Store.GetAccountByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			logging.ExtractLogger(ctx).Debug().Msg("Password reset requested for unknown email")
			return nil
		}
		return oops.New(err, "failed to look up account")
	}

	token, expires, err := s.Tokens.Issue(auth.PurposeReset, acc.ID, acc.Role, s.resetTTL())
	if err != nil {
		return err
	}
	acc.ResetToken = &token
	acc.ResetExpires = &expires
	if err := s.Store.UpdateAccount(ctx, acc); err != nil {
		return oops.New(err, "failed to save reset token")
	}
	s.Mailer.SendPasswordReset(ctx, acc, token, expires)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := CheckPassword(newPassword); err != nil {
		return err
	}
	acc, err := s.lookupByToken(ctx, token, auth.PurposeReset, s.Store.GetAccountByResetToken)
	if err != nil {
		return err
	}
	if acc.ResetExpires != nil && !acc.ResetExpires.After(s.now()) {
		return oops.InvalidInput("this link is invalid or has expired").WithCode(auth.CodeTokenInvalid)
	}

	acc.Password = auth.HashPassword(newPassword).String()
	acc.ResetToken = nil
	acc.ResetExpires = nil
	acc.UpdatedAt = s.now()
	if err := s.Store.UpdateAccount(ctx, acc); err != nil {
		return oops.New(err, "failed to reset password for account %d", acc.ID)
	}
	s.Mailer.SendPasswordChanged(ctx, acc)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, actor models.Identity, current, newPassword string) error {
	acc, err := s.get(ctx, actor.AccountID)
	if err != nil {
		return err
	}
	ok, err := auth.CheckPasswordString(current, acc.Password)
	if err != nil {
		return oops.New(err, "failed to check password for account %d", acc.ID)
	}
	if !ok {
		return oops.Unauthorized("current password is incorrect").WithCode("bad_credentials")
	}
	if err := CheckPassword(newPassword); err != nil {
		return err
	}

	acc.Password = auth.HashPassword(newPassword).String()
	acc.UpdatedAt = s.now()
	if err := s.Store.UpdateAccount(ctx, acc); err != nil {
		return oops.New(err, "failed to change password for account %d", acc.ID)
	}
	s.Mailer.SendPasswordChanged(ctx, acc)
	return nil
}

func (s *Service) Profile(ctx context.Context, actor models.Identity) (*models.Account, error) {
	return s.get(ctx, actor.AccountID)
}

type ProfileInput struct {
	Username *string
	Avatar   *string
}

// UpdateProfile changes the fields that are set. Replacing the avatar deletes
// the old image.
func (s *Service) UpdateProfile(ctx context.Context, actor models.Identity, in ProfileInput) (*models.Account, error) {
	acc, err := s.get(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username, err := CleanUsername(*in.Username)
		if err != nil {
			return nil, err
		}
		if err := s.checkUnique(ctx, acc.ID, "", username); err != nil {
			return nil, err
		}
		acc.Username = username
	}

	var oldAvatar string
	if in.Avatar != nil && *in.Avatar != acc.Avatar {
		oldAvatar = acc.Avatar
		acc.Avatar = *in.Avatar
	}

	acc.UpdatedAt = s.now()
	if err := s.Store.UpdateAccount(ctx, acc); err != nil {
		if oops.Is(err, oops.KindConflict) {
			return nil, err
		}
		return nil, oops.New(err, "failed to update profile for account %d", acc.ID)
	}

	if oldAvatar != "" {
		images.DeleteAll(ctx, s.images(), []string{oldAvatar})
	}
	return acc, nil
}

func (s *Service) UploadAvatar(ctx context.Context, actor models.Identity, filename string, content []byte) (*models.Account, error) {
	img, err := s.images().Upload(ctx, images.UploadInput{
		Content:  content,
		Filename: filename,
		Folder:   images.FolderAvatars,
	})
	if err != nil {
		return nil, err
	}
	return s.UpdateProfile(ctx, actor, ProfileInput{Avatar: &img.Url})
}

func (s *Service) LikedArticles(ctx context.Context, actor models.Identity) ([]*models.Article, error) {
	liked, err := s.Store.ListLikedArticles(ctx, actor.AccountID)
	if err != nil {
		return nil, oops.New(err, "failed to list liked articles")
	}
	return liked, nil
}

// ListAccounts returns every account with ban state brought up to date.
func (s *Service) ListAccounts(ctx context.Context, actor models.Identity) ([]*models.Account, error) {
	if err := perms.Require(actor, perms.AccountList); err != nil {
		return nil, err
	}
	accs, err := s.Store.ListAccounts(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to list accounts")
	}
	for _, acc := range accs {
		if _, err := s.Bans.Refresh(ctx, acc); err != nil {
			return nil, err
		}
	}
	return accs, nil
}

func errBannedAdmin() error {
	return oops.InvalidState("a banned account cannot be made an admin").WithCode("account_banned")
}

func (s *Service) ChangeRole(ctx context.Context, actor models.Identity, targetID int, role models.Role) (*models.Account, error) {
	if err := perms.Require(actor, perms.AccountChangeRole); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, oops.InvalidInput("unknown role %q", role).WithCode("invalid_role")
	}
	if actor.Is(targetID) {
		return nil, oops.InvalidState("you cannot change your own role").WithCode("cannot_change_own_role")
	}

	target, err := s.get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	status, err := s.Bans.Refresh(ctx, target)
	if err != nil {
		return nil, err
	}
	if role == models.RoleAdmin && status.State == bans.Banned {
		return nil, errBannedAdmin()
	}

	target.Role = role
	target.UpdatedAt = s.now()
	if err := s.Store.UpdateAccount(ctx, target); err != nil {
		if errors.Is(err, models.ErrBannedNotPromoted) {
			return nil, errBannedAdmin()
		}
		return nil, oops.New(err, "failed to change role for account %d", targetID)
	}
	logging.ExtractLogger(ctx).Info().
		Int("actor", actor.AccountID).
		Int("account id", targetID).
		Str("role", string(role)).
		Msg("Changed account role")
	return target, nil
}

/*
DeleteAccount removes an account and everything it owns. The account row goes
first; the rest is cleaned up afterwards and failures there are logged rather
than returned, since the account is already gone.
*/
func (s *Service) DeleteAccount(ctx context.Context, actor models.Identity, targetID int) error {
	if err := perms.Require(actor, perms.AccountDelete); err != nil {
		return err
	}
	if actor.Is(targetID) {
		return oops.InvalidState("you cannot delete your own account").WithCode("cannot_delete_self")
	}
	target, err := s.get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleAdmin {
		return oops.InvalidState("admin accounts cannot be deleted").WithCode("cannot_delete_admin")
	}

	if err := s.Store.DeleteAccount(ctx, targetID); err != nil {
		if errors.Is(err, db.NotFound) {
			return notFound(targetID)
		}
		return oops.New(err, "failed to delete account %d", targetID)
	}

	log := logging.ExtractLogger(ctx).With().Int("account id", targetID).Logger()
	if s.Articles != nil {
		if _, err := s.Articles.DeleteByAuthor(ctx, targetID); err != nil {
			log.Error().Err(err).Msg("failed to delete articles of deleted account")
		}
	}
	if s.Comments != nil {
		if _, err := s.Comments.DeleteByAuthor(ctx, targetID); err != nil {
			log.Error().Err(err).Msg("failed to delete comments of deleted account")
		}
	}
	if s.Notifications != nil {
		if _, err := s.Notifications.DeleteForRecipient(ctx, targetID); err != nil {
			log.Error().Err(err).Msg("failed to delete notifications of deleted account")
		}
	}
	if err := s.Store.RemoveLikesByAccount(ctx, targetID); err != nil {
		log.Error().Err(err).Msg("failed to remove likes of deleted account")
	}
	images.DeleteAll(ctx, s.images(), []string{target.Avatar})

	log.Info().Int("actor", actor.AccountID).Msg("Deleted account")
	return nil
}

type SiteStats struct {
	Users      int `json:"users"`
	News       int `json:"news"`
	Comments   int `json:"comments"`
	Categories int `json:"categories"`
	Views      int `json:"views"`
}

func (s *Service) Stats(ctx context.Context, actor models.Identity) (*SiteStats, error) {
	if err := perms.Require(actor, perms.AdminDashboard); err != nil {
		return nil, err
	}
	var stats SiteStats
	var err error
	if stats.Users, err = s.Store.CountAccounts(ctx); err != nil {
		return nil, oops.New(err, "failed to count accounts")
	}
	if stats.News, err = s.Store.CountArticles(ctx, nil); err != nil {
		return nil, oops.New(err, "failed to count articles")
	}
	if stats.Comments, err = s.Store.CountComments(ctx); err != nil {
		return nil, oops.New(err, "failed to count comments")
	}
	if stats.Categories, err = s.Store.CountCategories(ctx); err != nil {
		return nil, oops.New(err, "failed to count categories")
	}
	if stats.Views, err = s.Store.TotalViews(ctx, nil); err != nil {
		return nil, oops.New(err, "failed to count views")
	}
	return &stats, nil
}
