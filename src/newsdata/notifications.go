package newsdata

import (
	"context"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func (s *Store) GetNotification(ctx context.Context, id int) (*models.Notification, error) {
	return db.QueryOne[models.Notification](ctx, s.Conn,
		`SELECT $columns FROM notification WHERE id = $1`,
		id,
	)
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	id, err := db.QueryOneScalar[int](ctx, s.Conn,
		`
		INSERT INTO notification (recipient_id, creator_id, title, message, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
		`,
		n.RecipientID, n.CreatorID, n.Title, n.Message, string(n.Type), n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return oops.New(err, "failed to create notification")
	}
	n.ID = id
	return nil
}

/*
CreateNotifications inserts the whole batch in one statement, so a broadcast
either reaches everyone or no one. IDs are assigned in input order.
*/
func (s *Store) CreateNotifications(ctx context.Context, ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	recipients := make([]int, len(ns))
	creators := make([]int, len(ns))
	titles := make([]string, len(ns))
	messages := make([]string, len(ns))
	types := make([]string, len(ns))
	for i, n := range ns {
		recipients[i] = n.RecipientID
		creators[i] = n.CreatorID
		titles[i] = n.Title
		messages[i] = n.Message
		types[i] = string(n.Type)
	}

	ids, err := db.QueryScalar[int](ctx, s.Conn,
		`
		INSERT INTO notification (recipient_id, creator_id, title, message, type, is_read, created_at)
		SELECT r, c, t, m, ty, FALSE, $6
		FROM UNNEST($1::INT[], $2::INT[], $3::TEXT[], $4::TEXT[], $5::TEXT[]) WITH ORDINALITY AS batch(r, c, t, m, ty, ord)
		ORDER BY ord
		RETURNING id
		`,
		recipients, creators, titles, messages, types, ns[0].CreatedAt,
	)
	if err != nil {
		return oops.New(err, "failed to create notifications")
	}
	for i := range ids {
		if i < len(ns) {
			ns[i].ID = ids[i]
		}
	}
	return nil
}

func (s *Store) ListNotificationsForRecipient(ctx context.Context, recipientID, page, limit int) (models.NotificationPage, error) {
	type counts struct {
		Total  int `db:"total"`
		Unread int `db:"unread"`
	}
	c, err := db.QueryOne[counts](ctx, s.Conn,
		`
		---- Count notifications for recipient
		SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE NOT is_read) AS unread
		FROM notification
		WHERE recipient_id = $1
		`,
		recipientID,
	)
	if err != nil {
		return models.NotificationPage{}, oops.New(err, "failed to count notifications")
	}

	var qb db.QueryBuilder
	qb.Add(`---- List notifications for recipient`)
	qb.Add(`SELECT $columns FROM notification WHERE recipient_id = $?`, recipientID)
	qb.Add(`ORDER BY created_at DESC, id DESC`)
	addPage(&qb, page, limit)
	items, err := db.Query[models.Notification](ctx, s.Conn, qb.String(), qb.Args()...)
	if err != nil {
		return models.NotificationPage{}, oops.New(err, "failed to list notifications")
	}

	return models.NotificationPage{
		Items:       items,
		Total:       c.Total,
		UnreadCount: c.Unread,
	}, nil
}

func (s *Store) ListAllNotifications(ctx context.Context, page, limit int) ([]*models.Notification, int, error) {
	total, err := db.QueryOneScalar[int](ctx, s.Conn, `SELECT COUNT(*) FROM notification`)
	if err != nil {
		return nil, 0, oops.New(err, "failed to count notifications")
	}

	var qb db.QueryBuilder
	qb.Add(`SELECT $columns FROM notification ORDER BY created_at DESC, id DESC`)
	addPage(&qb, page, limit)
	items, err := db.Query[models.Notification](ctx, s.Conn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, 0, oops.New(err, "failed to list notifications")
	}
	return items, total, nil
}

func addPage(qb *db.QueryBuilder, page, limit int) {
	if limit <= 0 {
		return
	}
	if page < 1 {
		page = 1
	}
	qb.Add(`LIMIT $? OFFSET $?`, limit, (page-1)*limit)
}

func (s *Store) CountUnread(ctx context.Context, recipientID int) (int, error) {
	return db.QueryOneScalar[int](ctx, s.Conn,
		`
		---- Count unread notifications
		SELECT COUNT(*) FROM notification WHERE recipient_id = $1 AND NOT is_read
		`,
		recipientID,
	)
}

/*
EditNotification locks the row, hands it to apply and writes back the content,
edit stamp and history. Concurrent edits queue on the lock, so each one sees
the history the previous one wrote. Read state belongs to the recipient and is
left alone. Errors from apply come back unwrapped.
*/
func (s *Store) EditNotification(ctx context.Context, id int, apply func(n *models.Notification) error) (*models.Notification, error) {
	tx, err := s.Conn.Begin(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	n, err := db.QueryOne[models.Notification](ctx, tx,
		`
		---- Lock notification for edit
		SELECT $columns FROM notification WHERE id = $1 FOR UPDATE
		`,
		id,
	)
	if err != nil {
		return nil, err
	}
	if err := apply(n); err != nil {
		return nil, err
	}

	history := n.History
	if history == nil {
		history = []models.NotificationEdit{}
	}
	_, err = tx.Exec(ctx,
		`
		UPDATE notification
		SET title = $2, message = $3, type = $4, edited_at = $5, edited_by = $6, edit_history = $7
		WHERE id = $1
		`,
		n.ID, n.Title, n.Message, string(n.Type), n.EditedAt, n.EditedBy, history,
	)
	if err != nil {
		return nil, oops.New(err, "failed to update notification")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, oops.New(err, "failed to commit notification edit")
	}
	return n, nil
}

// MarkNotificationRead reports false if the notification does not exist or
// belongs to someone else.
func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID int) (bool, error) {
	tag, err := s.Conn.Exec(ctx,
		`UPDATE notification SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`,
		id, recipientID,
	)
	if err != nil {
		return false, oops.New(err, "failed to mark notification read")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientID int) (int64, error) {
	tag, err := s.Conn.Exec(ctx,
		`UPDATE notification SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`,
		recipientID,
	)
	if err != nil {
		return 0, oops.New(err, "failed to mark notifications read")
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteNotification(ctx context.Context, id int) error {
	tag, err := s.Conn.Exec(ctx, `DELETE FROM notification WHERE id = $1`, id)
	if err != nil {
		return oops.New(err, "failed to delete notification")
	}
	return affected(tag.RowsAffected())
}

func (s *Store) DeleteNotificationsForRecipient(ctx context.Context, recipientID int) (int64, error) {
	tag, err := s.Conn.Exec(ctx, `DELETE FROM notification WHERE recipient_id = $1`, recipientID)
	if err != nil {
		return 0, oops.New(err, "failed to delete notifications for recipient")
	}
	return tag.RowsAffected(), nil
}
