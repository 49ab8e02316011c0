/*
Package comments owns the per-article comment threads: creating replies,
moderating them, and flattening or rebuilding the reply tree.
*/
package comments

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/perms"
)

const MaxContentLength = 1000

type Store interface {
	GetArticle(ctx context.Context, id int) (*models.Article, error)

	GetComment(ctx context.Context, id int) (*models.Comment, error)
	ListCommentsByArticle(ctx context.Context, articleID int) ([]*models.Comment, error)
	ListCommentsByAuthor(ctx context.Context, authorID int) ([]*models.Comment, error)
	ListComments(ctx context.Context) ([]*models.Comment, error)
	CreateComment(ctx context.Context, c *models.Comment) error
	UpdateComment(ctx context.Context, c *models.Comment) error
	DeleteComment(ctx context.Context, id int) error
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

// CleanContent trims the content, drops angle brackets and checks the length.
func CleanContent(content string) (string, error) {
	cleaned := strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(content))
	if n := utf8.RuneCountInString(cleaned); n < 1 || n > MaxContentLength {
		return "", oops.InvalidInput("comment must be between 1 and %d characters", MaxContentLength).WithCode("invalid_content")
	}
	return cleaned, nil
}

/*
Create adds a comment to an article. The article must exist, and so must the
parent if one is given. A parent on another article is rejected, since the
reply would never show up under either thread.
*/
func (s *Service) Create(ctx context.Context, actor models.Identity, articleID int, content string, parentID *int) (*models.Comment, error) {
	if err := perms.Require(actor, perms.CommentWriteOwn); err != nil {
		return nil, err
	}
	content, err := CleanContent(content)
	if err != nil {
		return nil, err
	}

	if _, err := s.Store.GetArticle(ctx, articleID); err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, oops.NotFound("article %d not found", articleID).WithCode("article_not_found")
		}
		return nil, oops.New(err, "failed to fetch article %d", articleID)
	}

	if parentID != nil {
		parent, err := s.get(ctx, *parentID)
		if err != nil {
			if oops.Is(err, oops.KindNotFound) {
				return nil, oops.NotFound("parent comment %d not found", *parentID).WithCode("parent_not_found")
			}
			return nil, err
		}
		if parent.ArticleID != articleID {
			return nil, oops.InvalidInput("parent comment belongs to a different article").WithCode("parent_mismatch")
		}
	}

	now := s.Now()
	comment := &models.Comment{
		ArticleID: articleID,
		AuthorID:  actor.AccountID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateComment(ctx, comment); err != nil {
		return nil, oops.New(err, "failed to save comment")
	}
	return comment, nil
}

// List returns every comment on the article, oldest first, replies included.
func (s *Service) List(ctx context.Context, articleID int) ([]*models.Comment, error) {
	comments, err := s.Store.ListCommentsByArticle(ctx, articleID)
	if err != nil {
		return nil, oops.New(err, "failed to fetch comments for article %d", articleID)
	}
	return comments, nil
}

func (s *Service) Thread(ctx context.Context, articleID int) ([]*Node, error) {
	comments, err := s.List(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return BuildTree(comments), nil
}

func (s *Service) ListByAuthor(ctx context.Context, authorID int) ([]*models.Comment, error) {
	comments, err := s.Store.ListCommentsByAuthor(ctx, authorID)
	if err != nil {
		return nil, oops.New(err, "failed to fetch comments by account %d", authorID)
	}
	return comments, nil
}

// ListAll is the moderation queue: every comment on the site, newest first.
func (s *Service) ListAll(ctx context.Context, actor models.Identity) ([]*models.Comment, error) {
	if err := perms.Require(actor, perms.CommentModerate); err != nil {
		return nil, err
	}
	comments, err := s.Store.ListComments(ctx)
	if err != nil {
		return nil, oops.New(err, "failed to fetch comments")
	}
	return comments, nil
}

// Update replaces the content. Authors may edit their own comments; editors
// and admins may edit anyone's.
func (s *Service) Update(ctx context.Context, actor models.Identity, id int, content string) (*models.Comment, error) {
	content, err := CleanContent(content)
	if err != nil {
		return nil, err
	}
	comment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := perms.RequireModify(actor, perms.CommentWriteOwn, perms.CommentModerate, comment.AuthorID); err != nil {
		return nil, err
	}

	comment.Content = content
	comment.UpdatedAt = s.Now()
	if err := s.Store.UpdateComment(ctx, comment); err != nil {
		return nil, oops.New(err, "failed to update comment %d", id)
	}
	return comment, nil
}

/*
Delete removes a single comment. Its replies stay in the store; they are no
longer reachable from any root, so BuildTree leaves them out.
*/
func (s *Service) Delete(ctx context.Context, actor models.Identity, id int) error {
	comment, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := perms.RequireModify(actor, perms.CommentWriteOwn, perms.CommentModerate, comment.AuthorID); err != nil {
		return err
	}
	if err := s.Store.DeleteComment(ctx, id); err != nil {
		return oops.New(err, "failed to delete comment %d", id)
	}
	return nil
}

func (s *Service) Approve(ctx context.Context, actor models.Identity, id int) (*models.Comment, error) {
	if err := perms.Require(actor, perms.CommentApprove); err != nil {
		return nil, err
	}
	comment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.Approved {
		return comment, nil
	}

	comment.Approved = true
	comment.UpdatedAt = s.Now()
	if err := s.Store.UpdateComment(ctx, comment); err != nil {
		return nil, oops.New(err, "failed to approve comment %d", id)
	}
	return comment, nil
}

/*
DeleteByAuthor removes every comment written by authorID, one at a time. A
failure is logged and the rest are still attempted; it returns how many were
deleted.
*/
func (s *Service) DeleteByAuthor(ctx context.Context, authorID int) (int, error) {
	comments, err := s.ListByAuthor(ctx, authorID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, c := range comments {
		if err := s.Store.DeleteComment(ctx, c.ID); err != nil && !errors.Is(err, db.NotFound) {
			logging.ExtractLogger(ctx).Error().Err(err).Int("comment", c.ID).Msg("failed to delete comment")
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *Service) get(ctx context.Context, id int) (*models.Comment, error) {
	comment, err := s.Store.GetComment(ctx, id)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, oops.NotFound("comment %d not found", id).WithCode("comment_not_found")
		}
		return nil, oops.New(err, "failed to fetch comment %d", id)
	}
	return comment, nil
}
