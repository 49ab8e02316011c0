package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/articles"
	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/bans"
	"github.com/newsdesk-cms/newsdesk/src/comments"
	"github.com/newsdesk-cms/newsdesk/src/images"
	"github.com/newsdesk-cms/newsdesk/src/memstore"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/notifications"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type sentMail struct {
	Kind  string
	To    string
	Token string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) record(kind string, to *models.Account, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Kind: kind, To: to.Email, Token: token})
}

func (m *recordingMailer) SendVerification(ctx context.Context, to *models.Account, token string, expires time.Time) {
	m.record("verify", to, token)
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, to *models.Account, token string, expires time.Time) {
	m.record("reset", to, token)
}

func (m *recordingMailer) SendPasswordChanged(ctx context.Context, to *models.Account) {
	m.record("changed", to, "")
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type recordingHost struct {
	images.Disabled
	deleted []string
}

func (h *recordingHost) Upload(ctx context.Context, in images.UploadInput) (*images.Image, error) {
	return &images.Image{Url: "https://cdn.example.com/" + string(in.Folder) + "/" + in.Filename}, nil
}

func (h *recordingHost) Delete(ctx context.Context, urlOrRef string) error {
	h.deleted = append(h.deleted, urlOrRef)
	return nil
}

type fixture struct {
	store  *memstore.Store
	svc    *Service
	mailer *recordingMailer
	host   *recordingHost
	now    time.Time
}

func (f *fixture) Now() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memstore.New(),
		mailer: &recordingMailer{},
		host:   &recordingHost{},
		now:    t0,
	}
	tokens := auth.NewTokenIssuer("test-secret", f.Now)
	bc := bans.NewController(f.store, f.Now)
	f.svc = &Service{
		Store: f.store,
		Sessions: &auth.Manager{
			Store:      f.store,
			Bans:       bc,
			Tokens:     tokens,
			SessionTTL: time.Hour,
			StaleAfter: 15 * time.Minute,
			Now:        f.Now,
		},
		Bans:          bc,
		Tokens:        tokens,
		Mailer:        f.mailer,
		Images:        f.host,
		Articles:      articles.NewService(f.store, f.host, "", f.Now),
		Comments:      comments.NewService(f.store, f.Now),
		Notifications: notifications.NewService(f.store, f.Now),
		Now:           f.Now,
	}
	return f
}

// verified registers and verifies an account with the given role.
func (f *fixture) verified(t *testing.T, name string, role models.Role) *models.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := f.svc.Register(ctx, RegisterInput{Username: name, Email: name + "@example.com", Password: "password1"})
	require.NoError(t, err)
	acc, err = f.svc.VerifyEmail(ctx, f.mailer.last(t).Token)
	require.NoError(t, err)
	if role != models.RoleUser {
		acc.Role = role
		require.NoError(t, f.store.UpdateAccount(ctx, acc))
	}
	return acc
}

func TestValidation(t *testing.T) {
	_, err := CleanUsername("ab")
	assert.Equal(t, "invalid_username", oops.CodeOf(err))
	_, err = CleanUsername("bad$name")
	assert.Equal(t, "invalid_username", oops.CodeOf(err))
	name, err := CleanUsername("  Nguyễn Văn_A-1 ")
	if assert.NoError(t, err) {
		assert.Equal(t, "Nguyễn Văn_A-1", name)
	}

	_, err = CleanEmail("not-an-email")
	assert.Equal(t, "invalid_email", oops.CodeOf(err))

	assert.Equal(t, "invalid_password", oops.CodeOf(CheckPassword("12345")))
	assert.NoError(t, CheckPassword("123456"))
}

func TestRegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc, err := f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.False(t, acc.IsVerified)
	assert.Equal(t, models.RoleUser, acc.Role)
	assert.NotEqual(t, "password1", acc.Password)

	mail := f.mailer.last(t)
	assert.Equal(t, "verify", mail.Kind)
	assert.Equal(t, "alice@example.com", mail.To)

	_, err = f.svc.Login(ctx, "alice@example.com", "password1")
	assert.True(t, oops.Is(err, oops.KindForbidden))
	assert.Equal(t, "requires_verification", oops.CodeOf(err))

	t.Run("duplicates", func(t *testing.T) {
		_, err := f.svc.Register(ctx, RegisterInput{Username: "alice2", Email: "ALICE@example.com", Password: "password1"})
		assert.Equal(t, "email_taken", oops.CodeOf(err))
		_, err = f.svc.Register(ctx, RegisterInput{Username: "Alice", Email: "other@example.com", Password: "password1"})
		assert.Equal(t, "username_taken", oops.CodeOf(err))
	})

	t.Run("wrong token", func(t *testing.T) {
		_, err := f.svc.VerifyEmail(ctx, "garbage")
		assert.Equal(t, auth.CodeTokenInvalid, oops.CodeOf(err))
	})

	verified, err := f.svc.VerifyEmail(ctx, mail.Token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Nil(t, verified.VerificationToken)

	_, err = f.svc.VerifyEmail(ctx, mail.Token)
	assert.Equal(t, auth.CodeTokenInvalid, oops.CodeOf(err), "tokens are single use")
}

func TestVerificationExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Register(ctx, RegisterInput{Username: "late", Email: "late@example.com", Password: "password1"})
	require.NoError(t, err)
	f.now = f.now.Add(DefaultVerificationTTL + time.Minute)
	_, err = f.svc.VerifyEmail(ctx, f.mailer.last(t).Token)
	assert.Equal(t, auth.CodeTokenInvalid, oops.CodeOf(err))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verified(t, "bob", models.RoleUser)

	_, err := f.svc.Login(ctx, "bob@example.com", "nope-nope")
	assert.Equal(t, "bad_credentials", oops.CodeOf(err))
	_, err = f.svc.Login(ctx, "nobody@example.com", "password1")
	assert.Equal(t, "bad_credentials", oops.CodeOf(err))

	res, err := f.svc.Login(ctx, "bob@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), res.ExpiresAt)
	assert.True(t, res.Account.IsOnline)

	sess, err := f.svc.Sessions.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, sess.Identity.AccountID)

	require.NoError(t, f.svc.Logout(ctx, sess.Identity))
	stored, err := f.store.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsOnline)
}

func TestLoginWhileBanned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.verified(t, "ada", models.RoleAdmin)
	bob := f.verified(t, "bob", models.RoleUser)

	_, err := f.svc.Bans.Ban(ctx, admin.Identity(), bob.ID, "spam", "1d")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "bob@example.com", "password1")
	assert.Equal(t, bans.CodeAccountBanned, oops.CodeOf(err))

	_, err = f.svc.Login(ctx, "bob@example.com", "wrong-password")
	assert.Equal(t, "bad_credentials", oops.CodeOf(err), "credentials are checked before bans")

	f.now = f.now.Add(25 * time.Hour)
	res, err := f.svc.Login(ctx, "bob@example.com", "password1")
	require.NoError(t, err)
	assert.False(t, res.Account.IsBanned)

	stored, err := f.store.GetAccount(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsBanned, "expired ban is cleared in the store")
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.verified(t, "carol", models.RoleUser)

	require.NoError(t, f.svc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Equal(t, "verify", f.mailer.last(t).Kind, "no mail for unknown addresses")

	require.NoError(t, f.svc.ForgotPassword(ctx, "carol@example.com"))
	mail := f.mailer.last(t)
	assert.Equal(t, "reset", mail.Kind)

	err := f.svc.ResetPassword(ctx, mail.Token, "123")
	assert.Equal(t, "invalid_password", oops.CodeOf(err))

	require.NoError(t, f.svc.ResetPassword(ctx, mail.Token, "new-password"))
	assert.Equal(t, "changed", f.mailer.last(t).Kind)

	_, err = f.svc.Login(ctx, "carol@example.com", "password1")
	assert.Equal(t, "bad_credentials", oops.CodeOf(err))
	_, err = f.svc.Login(ctx, "carol@example.com", "new-password")
	assert.NoError(t, err)

	err = f.svc.ResetPassword(ctx, mail.Token, "another-one")
	assert.Equal(t, auth.CodeTokenInvalid, oops.CodeOf(err))
}

func TestResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.verified(t, "dave", models.RoleUser)

	require.NoError(t, f.svc.ForgotPassword(ctx, "dave@example.com"))
	f.now = f.now.Add(DefaultResetTTL + time.Second)
	err := f.svc.ResetPassword(ctx, f.mailer.last(t).Token, "new-password")
	assert.Equal(t, auth.CodeTokenInvalid, oops.CodeOf(err))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verified(t, "erin", models.RoleUser)

	err := f.svc.ChangePassword(ctx, acc.Identity(), "wrong-pass", "new-password")
	assert.True(t, oops.Is(err, oops.KindUnauthorized))
	assert.Equal(t, "bad_credentials", oops.CodeOf(err))

	require.NoError(t, f.svc.ChangePassword(ctx, acc.Identity(), "password1", "new-password"))
	assert.Equal(t, "changed", f.mailer.last(t).Kind)
	_, err = f.svc.Login(ctx, "erin@example.com", "new-password")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.verified(t, "frank", models.RoleUser)
	f.verified(t, "grace", models.RoleUser)

	taken := "Grace"
	_, err := f.svc.UpdateProfile(ctx, acc.Identity(), ProfileInput{Username: &taken})
	assert.True(t, oops.Is(err, oops.KindConflict))

	updated, err := f.svc.UploadAvatar(ctx, acc.Identity(), "me.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/me.png", updated.Avatar)
	assert.Empty(t, f.host.deleted)

	newName := "franky"
	updated, err = f.svc.UploadAvatar(ctx, acc.Identity(), "me2.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/avatars/me.png"}, f.host.deleted)

	updated, err = f.svc.UpdateProfile(ctx, acc.Identity(), ProfileInput{Username: &newName})
	require.NoError(t, err)
	assert.Equal(t, "franky", updated.Username)
	assert.Equal(t, "https://cdn.example.com/avatars/me2.png", updated.Avatar)
}

func TestChangeRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.verified(t, "ada", models.RoleAdmin)
	editor := f.verified(t, "eddie", models.RoleEditor)
	user := f.verified(t, "ulla", models.RoleUser)

	_, err := f.svc.ChangeRole(ctx, editor.Identity(), user.ID, models.RoleEditor)
	assert.True(t, oops.Is(err, oops.KindForbidden))

	_, err = f.svc.ChangeRole(ctx, admin.Identity(), user.ID, models.Role("owner"))
	assert.Equal(t, "invalid_role", oops.CodeOf(err))

	_, err = f.svc.ChangeRole(ctx, admin.Identity(), admin.ID, models.RoleUser)
	assert.True(t, oops.Is(err, oops.KindInvalidState))

	promoted, err := f.svc.ChangeRole(ctx, admin.Identity(), user.ID, models.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, promoted.Role)

	_, err = f.svc.Bans.Ban(ctx, admin.Identity(), user.ID, "", "permanent")
	require.NoError(t, err)
	_, err = f.svc.ChangeRole(ctx, admin.Identity(), user.ID, models.RoleAdmin)
	assert.True(t, oops.Is(err, oops.KindInvalidState))

	_, err = f.svc.ChangeRole(ctx, admin.Identity(), 999, models.RoleUser)
	assert.Equal(t, "account_not_found", oops.CodeOf(err))
}

// banningStore bans the target right after its first read, the way a ban
// landing between ChangeRole's read and its write would.
type banningStore struct {
	*memstore.Store
	targetID int
	banned   bool
}

func (s *banningStore) GetAccount(ctx context.Context, id int) (*models.Account, error) {
	acc, err := s.Store.GetAccount(ctx, id)
	if err != nil || id != s.targetID || s.banned {
		return acc, err
	}
	s.banned = true
	if err := s.Store.SetBan(ctx, id, models.Ban{IsBanned: true, Reason: "spam"}); err != nil {
		return nil, err
	}
	return acc, nil
}

func TestChangeRoleRefusedWhenTargetBannedMidway(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.verified(t, "ada", models.RoleAdmin)
	user := f.verified(t, "ulla", models.RoleUser)

	f.svc.Store = &banningStore{Store: f.store, targetID: user.ID}
	_, err := f.svc.ChangeRole(ctx, admin.Identity(), user.ID, models.RoleAdmin)
	assert.True(t, oops.Is(err, oops.KindInvalidState))
	assert.Equal(t, "account_banned", oops.CodeOf(err))

	stored, err := f.store.GetAccount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, stored.Role)
	assert.True(t, stored.IsBanned)
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.verified(t, "ada", models.RoleAdmin)
	editor := f.verified(t, "eddie", models.RoleEditor)
	reader := f.verified(t, "rita", models.RoleUser)

	article := &models.Article{Title: "Doomed", Content: "Some content here", AuthorID: editor.ID, Published: true}
	require.NoError(t, f.store.CreateArticle(ctx, article))
	other := &models.Article{Title: "Survivor", Content: "Some content here", AuthorID: admin.ID, Published: true}
	require.NoError(t, f.store.CreateArticle(ctx, other))
	require.NoError(t, f.store.CreateComment(ctx, &models.Comment{ArticleID: other.ID, AuthorID: editor.ID, Content: "mine", Approved: true}))
	require.NoError(t, f.store.CreateNotification(ctx, &models.Notification{RecipientID: editor.ID, Title: "hi", Message: "hello", Type: models.SeverityInfo}))
	_, _, err := f.store.ToggleLike(ctx, other.ID, editor.ID)
	require.NoError(t, err)

	err = f.svc.DeleteAccount(ctx, reader.Identity(), editor.ID)
	assert.True(t, oops.Is(err, oops.KindForbidden))
	err = f.svc.DeleteAccount(ctx, admin.Identity(), admin.ID)
	assert.Equal(t, "cannot_delete_self", oops.CodeOf(err))

	require.NoError(t, f.svc.DeleteAccount(ctx, admin.Identity(), editor.ID))

	_, err = f.store.GetAccount(ctx, editor.ID)
	assert.Error(t, err)
	_, err = f.store.GetArticle(ctx, article.ID)
	assert.Error(t, err)
	byEditor, err := f.store.ListCommentsByAuthor(ctx, editor.ID)
	require.NoError(t, err)
	assert.Empty(t, byEditor)
	unread, err := f.store.CountUnread(ctx, editor.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
	survivor, err := f.store.GetArticle(ctx, other.ID)
	require.NoError(t, err)
	assert.Zero(t, survivor.LikesCount)

	err = f.svc.DeleteAccount(ctx, admin.Identity(), editor.ID)
	assert.Equal(t, "account_not_found", oops.CodeOf(err))
}

func TestDeleteAccountSurvivesCleanupFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.verified(t, "ada", models.RoleAdmin)
	user := f.verified(t, "ulla", models.RoleUser)

	f.store.FailNext("DeleteNotificationsForRecipient", assert.AnError)
	assert.NoError(t, f.svc.DeleteAccount(ctx, admin.Identity(), user.ID))
}

func TestListAccountsClearsExpiredBans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.verified(t, "ada", models.RoleAdmin)
	user := f.verified(t, "ulla", models.RoleUser)

	_, err := f.svc.Bans.Ban(ctx, admin.Identity(), user.ID, "cooldown", "1d")
	require.NoError(t, err)
	f.now = f.now.Add(48 * time.Hour)

	_, err = f.svc.ListAccounts(ctx, user.Identity())
	assert.True(t, oops.Is(err, oops.KindForbidden))

	accs, err := f.svc.ListAccounts(ctx, admin.Identity())
	require.NoError(t, err)
	require.Len(t, accs, 2)
	for _, acc := range accs {
		assert.False(t, acc.IsBanned)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.verified(t, "ada", models.RoleAdmin)
	editor := f.verified(t, "eddie", models.RoleEditor)

	require.NoError(t, f.store.CreateArticle(ctx, &models.Article{Title: "One", Content: "Some content here", AuthorID: editor.ID, Published: true, Views: 5}))
	require.NoError(t, f.store.CreateCategory(ctx, &models.Category{Name: "World", Slug: "world"}))

	_, err := f.svc.Stats(ctx, editor.Identity())
	assert.True(t, oops.Is(err, oops.KindForbidden))

	stats, err := f.svc.Stats(ctx, admin.Identity())
	require.NoError(t, err)
	assert.Equal(t, SiteStats{Users: 2, News: 1, Comments: 0, Categories: 1, Views: 5}, *stats)
}
