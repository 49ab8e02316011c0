/*
Package notifications delivers admin messages to accounts and tracks which
ones each recipient has read.
*/
package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/perms"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

const CodeRecipientNotFound = "recipient_not_found"

type Store interface {
	GetAccount(ctx context.Context, id int) (*models.Account, error)
	ListAccountIDs(ctx context.Context) ([]int, error)

	GetNotification(ctx context.Context, id int) (*models.Notification, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	CreateNotifications(ctx context.Context, ns []*models.Notification) error
	ListNotificationsForRecipient(ctx context.Context, recipientID, page, limit int) (models.NotificationPage, error)
	ListAllNotifications(ctx context.Context, page, limit int) ([]*models.Notification, int, error)
	CountUnread(ctx context.Context, recipientID int) (int, error)
	EditNotification(ctx context.Context, id int, apply func(n *models.Notification) error) (*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, recipientID int) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID int) (int64, error)
	DeleteNotification(ctx context.Context, id int) error
	DeleteNotificationsForRecipient(ctx context.Context, recipientID int) (int64, error)
}

type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{Store: store, Now: now}
}

// Message is the content of a notification as an admin writes it.
type Message struct {
	Title   string
	Message string
	Type    models.Severity
}

func (m Message) clean() (Message, error) {
	m.Title = strings.TrimSpace(m.Title)
	m.Message = strings.TrimSpace(m.Message)
	if m.Title == "" {
		return m, oops.InvalidInput("title is required").WithCode("invalid_title")
	}
	if m.Message == "" {
		return m, oops.InvalidInput("message is required").WithCode("invalid_message")
	}
	if m.Type == "" {
		m.Type = models.SeverityInfo
	}
	if !m.Type.Valid() {
		return m, oops.InvalidInput("unknown notification type %q", m.Type).WithCode("invalid_type")
	}
	return m, nil
}

func (s *Service) newNotification(actor models.Identity, recipientID int, msg Message, now time.Time) *models.Notification {
	return &models.Notification{
		RecipientID: recipientID,
		CreatorID:   actor.AccountID,
		Title:       msg.Title,
		Message:     msg.Message,
		Type:        msg.Type,
		History:     []models.NotificationEdit{},
		CreatedAt:   now,
	}
}

func (s *Service) SendDirect(ctx context.Context, actor models.Identity, recipientID int, msg Message) (*models.Notification, error) {
	if err := perms.Require(actor, perms.NotificationSend); err != nil {
		return nil, err
	}
	msg, err := msg.clean()
	if err != nil {
		return nil, err
	}

	if _, err := s.Store.GetAccount(ctx, recipientID); err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, oops.NotFound("recipient %d not found", recipientID).WithCode(CodeRecipientNotFound)
		}
		return nil, oops.New(err, "failed to fetch recipient %d", recipientID)
	}

	n := s.newNotification(actor, recipientID, msg, s.Now())
	if err := s.Store.CreateNotification(ctx, n); err != nil {
		return nil, oops.New(err, "failed to save notification")
	}
	return n, nil
}

/*
Broadcast sends one notification to every account, admins included, and
returns how many were created.
*/
func (s *Service) Broadcast(ctx context.Context, actor models.Identity, msg Message) (int, error) {
	if err := perms.Require(actor, perms.NotificationSend); err != nil {
		return 0, err
	}
	msg, err := msg.clean()
	if err != nil {
		return 0, err
	}

	ids, err := s.Store.ListAccountIDs(ctx)
	if err != nil {
		return 0, oops.New(err, "failed to list accounts for broadcast")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	now := s.Now()
	batch := make([]*models.Notification, 0, len(ids))
	for _, id := range ids {
		batch = append(batch, s.newNotification(actor, id, msg, now))
	}
	if err := s.Store.CreateNotifications(ctx, batch); err != nil {
		return 0, oops.New(err, "failed to save broadcast")
	}
	return len(batch), nil
}

type Page struct {
	models.NotificationPage
	Page  int
	Pages int
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func numPages(total, limit int) int {
	return (total + limit - 1) / limit
}

func (s *Service) ListForRecipient(ctx context.Context, actor models.Identity, page, limit int) (Page, error) {
	page, limit = normalizePage(page, limit)
	result, err := s.Store.ListNotificationsForRecipient(ctx, actor.AccountID, page, limit)
	if err != nil {
		return Page{}, oops.New(err, "failed to fetch notifications")
	}
	return Page{
		NotificationPage: result,
		Page:             page,
		Pages:            numPages(result.Total, limit),
	}, nil
}

func (s *Service) UnreadCount(ctx context.Context, recipientID int) (int, error) {
	n, err := s.Store.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, oops.New(err, "failed to count unread notifications")
	}
	return n, nil
}

func (s *Service) ListAll(ctx context.Context, actor models.Identity, page, limit int) (Page, error) {
	if err := perms.Require(actor, perms.NotificationManage); err != nil {
		return Page{}, err
	}
	page, limit = normalizePage(page, limit)
	items, total, err := s.Store.ListAllNotifications(ctx, page, limit)
	if err != nil {
		return Page{}, oops.New(err, "failed to fetch notifications")
	}
	return Page{
		NotificationPage: models.NotificationPage{Items: items, Total: total},
		Page:             page,
		Pages:            numPages(total, limit),
	}, nil
}

/*
MarkRead flips the read flag on one of the caller's own notifications.
Someone else's notification looks exactly like a missing one, whatever the
caller's role.
*/
func (s *Service) MarkRead(ctx context.Context, actor models.Identity, id int) (*models.Notification, error) {
	ok, err := s.Store.MarkNotificationRead(ctx, id, actor.AccountID)
	if err != nil {
		return nil, oops.New(err, "failed to mark notification %d read", id)
	}
	if !ok {
		return nil, notFound(id)
	}
	return s.get(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, actor models.Identity) (int64, error) {
	n, err := s.Store.MarkAllNotificationsRead(ctx, actor.AccountID)
	if err != nil {
		return 0, oops.New(err, "failed to mark notifications read")
	}
	return n, nil
}

// Edit lists the fields to change. Nil fields are left alone.
type Edit struct {
	Title   *string
	Message *string
	Type    *models.Severity
}

/*
Edit pushes the notification's current state onto its history before
applying the changes, then stamps who edited it and when. Each history
entry is the state right before that edit. The store runs the whole
read-modify-write under the row's lock.
*/
func (s *Service) Edit(ctx context.Context, actor models.Identity, id int, edit Edit) (*models.Notification, error) {
	if err := perms.Require(actor, perms.NotificationManage); err != nil {
		return nil, err
	}

	n, err := s.Store.EditNotification(ctx, id, func(n *models.Notification) error {
		next, err := edit.merge(n)
		if err != nil {
			return err
		}

		n.History = append(n.History, n.Snapshot())

		editedAt := s.Now()
		editedBy := actor.AccountID
		n.Title = next.Title
		n.Message = next.Message
		n.Type = next.Type
		n.EditedAt = &editedAt
		n.EditedBy = &editedBy
		return nil
	})
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, notFound(id)
		}
		if oops.Is(err, oops.KindInvalidInput) {
			return nil, err
		}
		return nil, oops.New(err, "failed to update notification %d", id)
	}
	return n, nil
}

// merge lays the edit over the notification's current content.
func (edit Edit) merge(n *models.Notification) (Message, error) {
	next := Message{Title: n.Title, Message: n.Message, Type: n.Type}
	if edit.Title != nil {
		next.Title = *edit.Title
	}
	if edit.Message != nil {
		next.Message = *edit.Message
	}
	if edit.Type != nil {
		next.Type = *edit.Type
		if next.Type == "" {
			return next, oops.InvalidInput("notification type cannot be empty").WithCode("invalid_type")
		}
	}
	return next.clean()
}

func (s *Service) Delete(ctx context.Context, actor models.Identity, id int) error {
	if err := perms.Require(actor, perms.NotificationManage); err != nil {
		return err
	}
	if err := s.Store.DeleteNotification(ctx, id); err != nil {
		if errors.Is(err, db.NotFound) {
			return notFound(id)
		}
		return oops.New(err, "failed to delete notification %d", id)
	}
	return nil
}

// DeleteForRecipient is part of account deletion.
func (s *Service) DeleteForRecipient(ctx context.Context, recipientID int) (int64, error) {
	n, err := s.Store.DeleteNotificationsForRecipient(ctx, recipientID)
	if err != nil {
		return 0, oops.New(err, "failed to delete notifications for account %d", recipientID)
	}
	return n, nil
}

func (s *Service) get(ctx context.Context, id int) (*models.Notification, error) {
	n, err := s.Store.GetNotification(ctx, id)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, notFound(id)
		}
		return nil, oops.New(err, "failed to fetch notification %d", id)
	}
	return n, nil
}

func notFound(id int) error {
	return oops.NotFound("notification %d not found", id).WithCode("notification_not_found")
}
