package website

import (
	"time"

	"github.com/newsdesk-cms/newsdesk/src/accounts"
	"github.com/newsdesk-cms/newsdesk/src/articles"
	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/bans"
	"github.com/newsdesk-cms/newsdesk/src/categories"
	"github.com/newsdesk-cms/newsdesk/src/comments"
	"github.com/newsdesk-cms/newsdesk/src/config"
	"github.com/newsdesk-cms/newsdesk/src/email"
	"github.com/newsdesk-cms/newsdesk/src/images"
	"github.com/newsdesk-cms/newsdesk/src/notifications"
)

// Store is everything the site keeps. newsdata.Store is the real one;
// memstore.Store backs tests and --memory.
type Store interface {
	accounts.Store
	auth.Store
	articles.Store
	categories.Store
	comments.Store
	notifications.Store
}

// NewApp wires the services together over one store.
func NewApp(store Store, cfg config.NewsdeskConfig, mailer *email.Mailer, host images.Host, now func() time.Time) *App {
	if now == nil {
		now = time.Now
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, now)
	banController := bans.NewController(store, now)
	sessions := &auth.Manager{
		Store:      store,
		Bans:       banController,
		Tokens:     tokens,
		SessionTTL: cfg.Auth.SessionTTL,
		StaleAfter: cfg.Presence.StaleAfter,
		Now:        now,
	}

	articleService := articles.NewService(store, host, cfg.Maps.EmbedKey, now)
	commentService := comments.NewService(store, now)
	notificationService := notifications.NewService(store, now)

	return &App{
		Accounts: &accounts.Service{
			Store:           store,
			Sessions:        sessions,
			Bans:            banController,
			Tokens:          tokens,
			Mailer:          mailer,
			Images:          host,
			Articles:        articleService,
			Comments:        commentService,
			Notifications:   notificationService,
			VerificationTTL: cfg.Auth.VerificationTTL,
			ResetTTL:        cfg.Auth.ResetTTL,
			Now:             now,
		},
		Sessions:       sessions,
		Bans:           banController,
		Articles:       articleService,
		Comments:       commentService,
		Categories:     categories.NewService(store, host, now),
		Notifications:  notificationService,
		Mailer:         mailer,
		Images:         host,
		FrontendOrigin: cfg.Email.FrontendUrl,
		SecurityDelay:  100 * time.Millisecond,
	}
}
