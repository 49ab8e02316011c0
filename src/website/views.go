package website

import (
	"time"

	"github.com/newsdesk-cms/newsdesk/src/articles"
	"github.com/newsdesk-cms/newsdesk/src/comments"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/notifications"
	"github.com/newsdesk-cms/newsdesk/src/parsing"
)

// The JSON shapes sent to clients. Models never go out directly; password
// hashes and token secrets stay on the server.

type BanView struct {
	IsBanned  bool       `json:"isBanned"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Permanent bool       `json:"permanent"`
	BannedBy  *int       `json:"bannedBy,omitempty"`
	BannedAt  *time.Time `json:"bannedAt,omitempty"`
}

type AccountView struct {
	ID           int         `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	Avatar       string      `json:"avatar"`
	IsVerified   bool        `json:"isVerified"`
	IsOnline     bool        `json:"isOnline"`
	LastActivity time.Time   `json:"lastActivity"`
	Ban          BanView     `json:"ban"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func accountView(a *models.Account) AccountView {
	return AccountView{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		Role:         a.Role,
		Avatar:       a.Avatar,
		IsVerified:   a.IsVerified,
		IsOnline:     a.IsOnline,
		LastActivity: a.LastActivity,
		Ban: BanView{
			IsBanned:  a.IsBanned,
			Reason:    a.Ban.Reason,
			ExpiresAt: a.Ban.ExpiresAt,
			Permanent: a.Ban.IsPermanent(),
			BannedBy:  a.BannedBy,
			BannedAt:  a.BannedAt,
		},
		CreatedAt: a.CreatedAt,
	}
}

func accountViews(as []*models.Account) []AccountView {
	res := make([]AccountView, 0, len(as))
	for _, a := range as {
		res = append(res, accountView(a))
	}
	return res
}

type LocationView struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type ArticleView struct {
	ID         int           `json:"id"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	Summary    string        `json:"summary"`
	AuthorID   int           `json:"authorId"`
	CategoryID *int          `json:"categoryId"`
	Tags       []string      `json:"tags"`
	Images     []string      `json:"images"`
	VideoUrl   string        `json:"videoUrl,omitempty"`
	Location   *LocationView `json:"location,omitempty"`
	Views      int           `json:"views"`
	LikesCount int           `json:"likesCount"`
	Published  bool          `json:"published"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func articleView(a *models.Article) ArticleView {
	v := ArticleView{
		ID:         a.ID,
		Title:      a.Title,
		Content:    a.Content,
		Summary:    a.Summary,
		AuthorID:   a.AuthorID,
		CategoryID: a.CategoryID,
		Tags:       nonNil(a.Tags),
		Images:     nonNil(a.Images),
		VideoUrl:   a.VideoUrl,
		Views:      a.Views,
		LikesCount: a.LikesCount,
		Published:  a.Published,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if a.Location.IsSet() {
		v.Location = &LocationView{Lat: *a.Lat, Lng: *a.Lng, Address: a.Address}
	}
	return v
}

func articleViews(as []*models.Article) []ArticleView {
	res := make([]ArticleView, 0, len(as))
	for _, a := range as {
		res = append(res, articleView(a))
	}
	return res
}

type ArticleDetailView struct {
	ArticleView
	ContentHtml   string `json:"contentHtml"`
	MapUrl        string `json:"mapUrl,omitempty"`
	VideoEmbedUrl string `json:"videoEmbedUrl,omitempty"`
	Liked         bool   `json:"liked"`
}

func articleDetailView(d *articles.Detail) ArticleDetailView {
	return ArticleDetailView{
		ArticleView:   articleView(d.Article),
		ContentHtml:   d.ContentHtml,
		MapUrl:        d.MapUrl,
		VideoEmbedUrl: d.VideoEmbedUrl,
		Liked:         d.Liked,
	}
}

type PageView[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

func articlePageView(p *articles.Page) PageView[ArticleView] {
	return PageView[ArticleView]{
		Items: articleViews(p.Items),
		Total: p.Total,
		Page:  p.Page,
		Pages: p.Pages,
	}
}

type CommentView struct {
	ID          int       `json:"id"`
	ArticleID   int       `json:"newsId"`
	AuthorID    int       `json:"authorId"`
	ParentID    *int      `json:"parentId"`
	Content     string    `json:"content"`
	ContentHtml string    `json:"contentHtml"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func commentView(cm *models.Comment) CommentView {
	return CommentView{
		ID:          cm.ID,
		ArticleID:   cm.ArticleID,
		AuthorID:    cm.AuthorID,
		ParentID:    cm.ParentID,
		Content:     cm.Content,
		ContentHtml: parsing.RenderComment(cm.Content),
		Approved:    cm.Approved,
		CreatedAt:   cm.CreatedAt,
		UpdatedAt:   cm.UpdatedAt,
	}
}

func commentViews(cms []*models.Comment) []CommentView {
	res := make([]CommentView, 0, len(cms))
	for _, cm := range cms {
		res = append(res, commentView(cm))
	}
	return res
}

type CommentNodeView struct {
	CommentView
	Replies []CommentNodeView `json:"replies"`
}

func commentTreeView(nodes []*comments.Node) []CommentNodeView {
	res := make([]CommentNodeView, 0, len(nodes))
	for _, n := range nodes {
		res = append(res, CommentNodeView{
			CommentView: commentView(n.Comment),
			Replies:     commentTreeView(n.Replies),
		})
	}
	return res
}

type CategoryView struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func categoryView(cat *models.Category) CategoryView {
	return CategoryView{
		ID:          cat.ID,
		Name:        cat.Name,
		Slug:        cat.Slug,
		Description: cat.Description,
		Images:      nonNil(cat.Images),
		CreatedAt:   cat.CreatedAt,
		UpdatedAt:   cat.UpdatedAt,
	}
}

func categoryViews(cats []*models.Category) []CategoryView {
	res := make([]CategoryView, 0, len(cats))
	for _, cat := range cats {
		res = append(res, categoryView(cat))
	}
	return res
}

type NotificationView struct {
	ID          int                       `json:"id"`
	RecipientID int                       `json:"recipientId"`
	CreatorID   int                       `json:"creatorId"`
	Title       string                    `json:"title"`
	Message     string                    `json:"message"`
	Type        models.Severity           `json:"type"`
	IsRead      bool                      `json:"isRead"`
	EditedAt    *time.Time                `json:"editedAt,omitempty"`
	EditedBy    *int                      `json:"editedBy,omitempty"`
	History     []models.NotificationEdit `json:"editHistory"`
	CreatedAt   time.Time                 `json:"createdAt"`
}

func notificationView(n *models.Notification) NotificationView {
	history := n.History
	if history == nil {
		history = []models.NotificationEdit{}
	}
	return NotificationView{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		CreatorID:   n.CreatorID,
		Title:       n.Title,
		Message:     n.Message,
		Type:        n.Type,
		IsRead:      n.IsRead,
		EditedAt:    n.EditedAt,
		EditedBy:    n.EditedBy,
		History:     history,
		CreatedAt:   n.CreatedAt,
	}
}

type NotificationPageView struct {
	PageView[NotificationView]
	UnreadCount int `json:"unreadCount"`
}

func notificationPageView(p notifications.Page) NotificationPageView {
	items := make([]NotificationView, 0, len(p.Items))
	for _, n := range p.Items {
		items = append(items, notificationView(n))
	}
	return NotificationPageView{
		PageView: PageView[NotificationView]{
			Items: items,
			Total: p.Total,
			Page:  p.Page,
			Pages: p.Pages,
		},
		UnreadCount: p.UnreadCount,
	}
}
