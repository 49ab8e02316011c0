/*
Package articles is the news side of the site: listing and reading published
articles, authoring them, publishing, likes and search suggestions.
*/
package articles

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/images"
	"github.com/newsdesk-cms/newsdesk/src/logging"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/newsurl"
	"github.com/newsdesk-cms/newsdesk/src/oops"
	"github.com/newsdesk-cms/newsdesk/src/parsing"
	"github.com/newsdesk-cms/newsdesk/src/perms"
	"github.com/newsdesk-cms/newsdesk/src/utils"
)

const MaxSuggestions = 10

type Store interface {
	GetArticle(ctx context.Context, id int) (*models.Article, error)
	ListArticles(ctx context.Context, q models.ArticleQuery) ([]*models.Article, int, error)
	ListArticlesByAuthor(ctx context.Context, authorID int) ([]*models.Article, error)
	SuggestArticles(ctx context.Context, query string, limit int) ([]*models.Article, error)
	CreateArticle(ctx context.Context, a *models.Article) error
	UpdateArticle(ctx context.Context, a *models.Article) error
	DeleteArticle(ctx context.Context, id int) error
	IncrementViews(ctx context.Context, id int) (int, error)
	ToggleLike(ctx context.Context, articleID, accountID int) (bool, int, error)
	HasLiked(ctx context.Context, articleID, accountID int) (bool, error)
	CountArticles(ctx context.Context, authorID *int) (int, error)
	TotalViews(ctx context.Context, authorID *int) (int, error)

	GetCategory(ctx context.Context, id int) (*models.Category, error)
	DeleteCommentsByArticle(ctx context.Context, articleID int) (int64, error)
	CountComments(ctx context.Context) (int, error)
}

type Service struct {
	Store   Store
	Images  images.Host
	MapsKey string
	Now     func() time.Time
}

func NewService(store Store, host images.Host, mapsKey string, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if host == nil {
		host = images.Disabled{}
	}
	return &Service{Store: store, Images: host, MapsKey: mapsKey, Now: now}
}

// Detail is an article as shown on its own page.
type Detail struct {
	Article       *models.Article
	ContentHtml   string
	MapUrl        string
	VideoEmbedUrl string
	Liked         bool
}

type Page struct {
	Items []*models.Article
	Total int
	Page  int
	Pages int
}

func (s *Service) MapUrl(a *models.Article) string {
	if !a.Location.IsSet() {
		return ""
	}
	return newsurl.BuildMapEmbed(s.MapsKey, *a.Lat, *a.Lng)
}

func (s *Service) get(ctx context.Context, id int) (*models.Article, error) {
	a, err := s.Store.GetArticle(ctx, id)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, oops.NotFound("article %d not found", id).WithCode("article_not_found")
		}
		return nil, oops.New(err, "failed to fetch article %d", id)
	}
	return a, nil
}

// canSee reports whether the caller may see the article. Drafts are visible
// only to whoever may edit them.
func canSee(actor *models.Identity, a *models.Article) bool {
	if a.Published {
		return true
	}
	return actor != nil && perms.CanModify(*actor, perms.ArticleWriteOwn, perms.ArticleWriteAny, a.AuthorID)
}

func (s *Service) list(ctx context.Context, q models.ArticleQuery) (*Page, error) {
	page, limit, err := CheckPagination(q.Page, q.Limit)
	if err != nil {
		return nil, err
	}
	q.Page, q.Limit = page, limit
	q.Search = strings.TrimSpace(q.Search)
	q.Tag = strings.TrimSpace(q.Tag)

	items, total, err := s.Store.ListArticles(ctx, q)
	if err != nil {
		return nil, oops.New(err, "failed to list articles")
	}
	return &Page{
		Items: items,
		Total: total,
		Page:  page,
		Pages: utils.NumPages(total, limit),
	}, nil
}

// ListPublished lists published articles, newest first.
func (s *Service) ListPublished(ctx context.Context, q models.ArticleQuery) (*Page, error) {
	q.IncludeUnpublished = false
	return s.list(ctx, q)
}

// ListAll is the admin listing, drafts included.
func (s *Service) ListAll(ctx context.Context, actor models.Identity, q models.ArticleQuery) (*Page, error) {
	if err := perms.Require(actor, perms.ArticleWriteAny); err != nil {
		return nil, err
	}
	q.IncludeUnpublished = true
	return s.list(ctx, q)
}

/*
ListMine lists the caller's own articles, drafts included. Admins get every
article.
*/
func (s *Service) ListMine(ctx context.Context, actor models.Identity) ([]*models.Article, error) {
	if err := perms.Require(actor, perms.ArticleWriteOwn); err != nil {
		return nil, err
	}
	if perms.CanPerform(actor.Role, perms.ArticleWriteAny) {
		items, _, err := s.Store.ListArticles(ctx, models.ArticleQuery{IncludeUnpublished: true})
		if err != nil {
			return nil, oops.New(err, "failed to list articles")
		}
		return items, nil
	}
	items, err := s.Store.ListArticlesByAuthor(ctx, actor.AccountID)
	if err != nil {
		return nil, oops.New(err, "failed to list articles by %d", actor.AccountID)
	}
	return items, nil
}

/*
Get reads one article and counts the view. Every read counts, including
repeated reads by the same caller. actor is nil for anonymous readers.
*/
func (s *Service) Get(ctx context.Context, actor *models.Identity, id int) (*Detail, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, a) {
		return nil, oops.NotFound("article %d not found", id).WithCode("article_not_found")
	}

	views, err := s.Store.IncrementViews(ctx, id)
	if err != nil {
		return nil, oops.New(err, "failed to count view of article %d", id)
	}
	a.Views = views

	detail := &Detail{
		Article:     a,
		ContentHtml: parsing.ParseMarkdown(a.Content, parsing.ArticleMarkdown),
		MapUrl:      s.MapUrl(a),
	}
	if a.VideoUrl != "" {
		detail.VideoEmbedUrl, _ = parsing.VideoEmbedURL(a.VideoUrl)
	}
	if actor != nil {
		liked, err := s.Store.HasLiked(ctx, id, actor.AccountID)
		if err != nil {
			return nil, oops.New(err, "failed to check like on article %d", id)
		}
		detail.Liked = liked
	}
	return detail, nil
}

func (s *Service) checkCategory(ctx context.Context, categoryID *int) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.Store.GetCategory(ctx, *categoryID); err != nil {
		if errors.Is(err, db.NotFound) {
			return oops.InvalidInput("category %d does not exist", *categoryID).WithCode("category_not_found")
		}
		return oops.New(err, "failed to fetch category %d", *categoryID)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actor models.Identity, in Input) (*models.Article, error) {
	if err := perms.Require(actor, perms.ArticleWriteOwn); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := s.Now()
	a := &models.Article{
		AuthorID:  actor.AccountID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.applyTo(a)
	if err := s.Store.CreateArticle(ctx, a); err != nil {
		return nil, oops.New(err, "failed to create article")
	}
	return a, nil
}

// Update replaces the editable fields. Images no longer referenced are
// deleted from the image host.
func (s *Service) Update(ctx context.Context, actor models.Identity, id int, in Input) (*models.Article, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := perms.RequireModify(actor, perms.ArticleWriteOwn, perms.ArticleWriteAny, a.AuthorID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	oldImages := a.Images
	in.applyTo(a)
	a.UpdatedAt = s.Now()
	if err := s.Store.UpdateArticle(ctx, a); err != nil {
		return nil, oops.New(err, "failed to update article %d", id)
	}

	images.DeleteAll(ctx, s.Images, removedImages(oldImages, a.Images))
	return a, nil
}

func (s *Service) Delete(ctx context.Context, actor models.Identity, id int) error {
	a, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := perms.RequireModify(actor, perms.ArticleDeleteOwn, perms.ArticleDeleteAny, a.AuthorID); err != nil {
		return err
	}
	return s.remove(ctx, a)
}

/*
remove deletes the article, then its comments and images. Only the article
delete itself can fail the call; the rest is logged and left behind.
*/
func (s *Service) remove(ctx context.Context, a *models.Article) error {
	if err := s.Store.DeleteArticle(ctx, a.ID); err != nil {
		if errors.Is(err, db.NotFound) {
			return oops.NotFound("article %d not found", a.ID).WithCode("article_not_found")
		}
		return oops.New(err, "failed to delete article %d", a.ID)
	}

	log := logging.ExtractLogger(ctx)
	if n, err := s.Store.DeleteCommentsByArticle(ctx, a.ID); err != nil {
		log.Error().Err(err).Int("article", a.ID).Msg("failed to delete comments of deleted article")
	} else if n > 0 {
		log.Debug().Int("article", a.ID).Int64("comments", n).Msg("Deleted comments of deleted article")
	}
	images.DeleteAll(ctx, s.Images, a.Images)
	return nil
}

/*
DeleteByAuthor removes every article written by authorID, with their
comments and images. It keeps going past failures and returns how many
articles were deleted.
*/
func (s *Service) DeleteByAuthor(ctx context.Context, authorID int) (int, error) {
	list, err := s.Store.ListArticlesByAuthor(ctx, authorID)
	if err != nil {
		return 0, oops.New(err, "failed to list articles by %d", authorID)
	}
	deleted := 0
	for _, a := range list {
		if err := s.remove(ctx, a); err != nil {
			logging.ExtractLogger(ctx).Error().Err(err).Int("article", a.ID).Msg("failed to delete article of deleted account")
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *Service) TogglePublish(ctx context.Context, actor models.Identity, id int) (*models.Article, error) {
	if err := perms.Require(actor, perms.ArticlePublish); err != nil {
		return nil, err
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Published = !a.Published
	a.UpdatedAt = s.Now()
	if err := s.Store.UpdateArticle(ctx, a); err != nil {
		return nil, oops.New(err, "failed to toggle publish on article %d", id)
	}
	return a, nil
}

type LikeResult struct {
	Liked      bool
	LikesCount int
}

// ToggleLike likes the article for the caller, or takes the like back if
// they already liked it. A caller holds at most one like per article.
func (s *Service) ToggleLike(ctx context.Context, actor models.Identity, id int) (LikeResult, error) {
	if err := perms.Require(actor, perms.ArticleLike); err != nil {
		return LikeResult{}, err
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return LikeResult{}, err
	}
	if !canSee(&actor, a) {
		return LikeResult{}, oops.NotFound("article %d not found", id).WithCode("article_not_found")
	}

	liked, count, err := s.Store.ToggleLike(ctx, id, actor.AccountID)
	if err != nil {
		return LikeResult{}, oops.New(err, "failed to toggle like on article %d", id)
	}
	return LikeResult{Liked: liked, LikesCount: count}, nil
}

// Suggestions returns titles of published articles matching q, newest first.
func (s *Service) Suggestions(ctx context.Context, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []string{}, nil
	}
	found, err := s.Store.SuggestArticles(ctx, q, MaxSuggestions)
	if err != nil {
		return nil, oops.New(err, "failed to look up suggestions")
	}
	titles := make([]string, 0, len(found))
	for _, a := range found {
		titles = append(titles, a.Title)
	}
	return titles, nil
}

type DashboardStats struct {
	Articles int  `json:"articles"`
	Views    int  `json:"views"`
	Comments *int `json:"comments,omitempty"`
}

/*
Stats is the editor dashboard. Editors see their own articles and views;
admins see site-wide totals, comments included.
*/
func (s *Service) Stats(ctx context.Context, actor models.Identity) (*DashboardStats, error) {
	if err := perms.Require(actor, perms.EditorDashboard); err != nil {
		return nil, err
	}

	var author *int
	siteWide := perms.CanPerform(actor.Role, perms.AdminDashboard)
	if !siteWide {
		author = &actor.AccountID
	}

	articles, err := s.Store.CountArticles(ctx, author)
	if err != nil {
		return nil, oops.New(err, "failed to count articles")
	}
	views, err := s.Store.TotalViews(ctx, author)
	if err != nil {
		return nil, oops.New(err, "failed to total views")
	}
	stats := &DashboardStats{Articles: articles, Views: views}
	if siteWide {
		comments, err := s.Store.CountComments(ctx)
		if err != nil {
			return nil, oops.New(err, "failed to count comments")
		}
		stats.Comments = &comments
	}
	return stats, nil
}

func removedImages(before, after []string) []string {
	kept := make(map[string]bool, len(after))
	for _, u := range after {
		kept[u] = true
	}
	var removed []string
	for _, u := range before {
		if !kept[u] {
			removed = append(removed, u)
		}
	}
	return removed
}
