package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/newsdesk-cms/newsdesk/src/migration/types"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func init() {
	registerMigration(NotificationEditHistory{})
}

type NotificationEditHistory struct{}

func (m NotificationEditHistory) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2024, 3, 19, 14, 22, 10, 0, time.UTC))
}

func (m NotificationEditHistory) Name() string {
	return "NotificationEditHistory"
}

func (m NotificationEditHistory) Description() string {
	return "Keep the previous versions of edited notifications"
}

func (m NotificationEditHistory) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		ALTER TABLE notification
			ADD COLUMN edited_at TIMESTAMP WITH TIME ZONE,
			ADD COLUMN edited_by INT,
			ADD COLUMN edit_history JSONB NOT NULL DEFAULT '[]';
		`,
	)
	if err != nil {
		return oops.New(err, "failed to add notification history columns")
	}
	return nil
}

func (m NotificationEditHistory) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		ALTER TABLE notification
			DROP COLUMN edited_at,
			DROP COLUMN edited_by,
			DROP COLUMN edit_history;
		`,
	)
	if err != nil {
		return oops.New(err, "failed to drop notification history columns")
	}
	return nil
}
