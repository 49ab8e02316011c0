package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/newsdesk-cms/newsdesk/src/migration/types"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func init() {
	registerMigration(Initial{})
}

type Initial struct{}

func (m Initial) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
}

func (m Initial) Name() string {
	return "Initial"
}

func (m Initial) Description() string {
	return "Create accounts, categories, articles, likes, comments and notifications"
}

func (m Initial) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE TABLE account (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password VARCHAR(256) NOT NULL,
			role VARCHAR(16) NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'editor', 'admin')),
			avatar TEXT NOT NULL DEFAULT '',

			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_online BOOLEAN NOT NULL DEFAULT FALSE,
			last_activity TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

			verification_token TEXT,
			verification_expires TIMESTAMP WITH TIME ZONE,
			reset_token TEXT,
			reset_expires TIMESTAMP WITH TIME ZONE,

			is_banned BOOLEAN NOT NULL DEFAULT FALSE,
			ban_reason TEXT NOT NULL DEFAULT '',
			ban_expires_at TIMESTAMP WITH TIME ZONE,
			banned_by INT,
			banned_at TIMESTAMP WITH TIME ZONE,

			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX account_email_key ON account (LOWER(email));
		CREATE UNIQUE INDEX account_username_key ON account (LOWER(username));
		CREATE INDEX account_verification_token ON account (verification_token) WHERE verification_token IS NOT NULL;
		CREATE INDEX account_reset_token ON account (reset_token) WHERE reset_token IS NOT NULL;

		CREATE TABLE category (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			slug VARCHAR(120) NOT NULL,
			description VARCHAR(500) NOT NULL DEFAULT '',
			images TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX category_name_key ON category (LOWER(name));
		CREATE UNIQUE INDEX category_slug_key ON category (slug);

		-- No foreign keys to account on authored content or likes. Account
		-- deletion removes those afterwards so images and like counts are
		-- cleaned up too.
		CREATE TABLE article (
			id SERIAL PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			content TEXT NOT NULL,
			summary VARCHAR(500) NOT NULL DEFAULT '',
			author_id INT NOT NULL,
			category_id INT REFERENCES category (id) ON DELETE SET NULL,
			tags TEXT[] NOT NULL DEFAULT '{}',
			images TEXT[] NOT NULL DEFAULT '{}',
			video_url TEXT NOT NULL DEFAULT '',
			location_lat DOUBLE PRECISION,
			location_lng DOUBLE PRECISION,
			location_address TEXT NOT NULL DEFAULT '',
			views INT NOT NULL DEFAULT 0,
			likes_count INT NOT NULL DEFAULT 0,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX article_author ON article (author_id);
		CREATE INDEX article_category ON article (category_id);

		CREATE TABLE article_like (
			article_id INT NOT NULL REFERENCES article (id) ON DELETE CASCADE,
			account_id INT NOT NULL,
			PRIMARY KEY (article_id, account_id)
		);
		CREATE INDEX article_like_account ON article_like (account_id);

		CREATE TABLE comment (
			id SERIAL PRIMARY KEY,
			article_id INT NOT NULL REFERENCES article (id) ON DELETE CASCADE,
			author_id INT NOT NULL,
			parent_id INT,
			content VARCHAR(1000) NOT NULL,
			approved BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX comment_article ON comment (article_id, created_at);
		CREATE INDEX comment_author ON comment (author_id);

		CREATE TABLE notification (
			id SERIAL PRIMARY KEY,
			recipient_id INT NOT NULL REFERENCES account (id) ON DELETE CASCADE,
			creator_id INT NOT NULL,
			title VARCHAR(200) NOT NULL,
			message TEXT NOT NULL,
			type VARCHAR(16) NOT NULL DEFAULT 'info' CHECK (type IN ('info', 'warning', 'success', 'error')),
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
		CREATE INDEX notification_recipient ON notification (recipient_id, created_at DESC);
		`,
	)
	if err != nil {
		return oops.New(err, "failed to create initial tables")
	}
	return nil
}

func (m Initial) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		DROP TABLE notification;
		DROP TABLE comment;
		DROP TABLE article_like;
		DROP TABLE article;
		DROP TABLE category;
		DROP TABLE account;
		`,
	)
	if err != nil {
		return oops.New(err, "failed to drop initial tables")
	}
	return nil
}
