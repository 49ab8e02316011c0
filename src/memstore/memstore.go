/*
Package memstore keeps every record in process memory. It implements the same
store interfaces as the Postgres store in newsdata, and backs the test suites
and `newsdesk --memory` for local demos. Records are copied on the way in and
out so callers cannot mutate stored state behind the store's back.
*/
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

type likeKey struct {
	articleID int
	accountID int
}

type Store struct {
	mu sync.RWMutex

	nextID        int
	accounts      map[int]*models.Account
	articles      map[int]*models.Article
	categories    map[int]*models.Category
	comments      map[int]*models.Comment
	notifications map[int]*models.Notification
	likes         map[likeKey]struct{}

	// keyed by method name, like "DeleteComment"
	failNext map[string]error
}

func New() *Store {
	return &Store{
		accounts:      make(map[int]*models.Account),
		articles:      make(map[int]*models.Article),
		categories:    make(map[int]*models.Category),
		comments:      make(map[int]*models.Comment),
		notifications: make(map[int]*models.Notification),
		likes:         make(map[likeKey]struct{}),
		failNext:      make(map[string]error),
	}
}

// FailNext arranges for the next call to method to return err.
func (s *Store) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[method] = err
}

func (s *Store) injected(method string) error {
	if err, ok := s.failNext[method]; ok {
		delete(s.failNext, method)
		return err
	}
	return nil
}

func (s *Store) newID() int {
	s.nextID++
	return s.nextID
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func copyArticle(a *models.Article) *models.Article {
	c := *a
	c.Tags = copyStrings(a.Tags)
	c.Images = copyStrings(a.Images)
	return &c
}

func copyCategory(cat *models.Category) *models.Category {
	c := *cat
	c.Images = copyStrings(cat.Images)
	return &c
}

func copyComment(cm *models.Comment) *models.Comment {
	c := *cm
	return &c
}

func copyNotification(n *models.Notification) *models.Notification {
	c := *n
	if n.History != nil {
		c.History = append([]models.NotificationEdit(nil), n.History...)
	}
	return &c
}

func before(aTime time.Time, aID int, bTime time.Time, bID int) bool {
	if !aTime.Equal(bTime) {
		return aTime.Before(bTime)
	}
	return aID < bID
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

/*
 * Accounts
 */

func (s *Store) GetAccount(ctx context.Context, id int) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetAccount"); err != nil {
		return nil, err
	}
	acc, ok := s.accounts[id]
	if !ok {
		return nil, db.NotFound
	}
	return copyAccount(acc), nil
}

func (s *Store) findAccount(match func(a *models.Account) bool) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if match(acc) {
			return copyAccount(acc), nil
		}
	}
	return nil, db.NotFound
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findAccount(func(a *models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.findAccount(func(a *models.Account) bool { return strings.EqualFold(a.Username, username) })
}

func (s *Store) GetAccountByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return s.findAccount(func(a *models.Account) bool {
		return a.VerificationToken != nil && *a.VerificationToken == token
	})
}

func (s *Store) GetAccountByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return s.findAccount(func(a *models.Account) bool {
		return a.ResetToken != nil && *a.ResetToken == token
	})
}

func (s *Store) sortedAccounts() []*models.Account {
	result := make([]*models.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		result = append(result, copyAccount(acc))
	}
	sort.Slice(result, func(i, j int) bool {
		return before(result[j].CreatedAt, result[j].ID, result[i].CreatedAt, result[i].ID)
	})
	return result
}

func (s *Store) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedAccounts(), nil
}

func (s *Store) ListAccountIDs(ctx context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ListAccountIDs"); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (s *Store) checkAccountUnique(acc *models.Account) error {
	for _, other := range s.accounts {
		if other.ID == acc.ID {
			continue
		}
		if strings.EqualFold(other.Email, acc.Email) {
			return oops.Conflict("email is already registered").WithCode("email_taken")
		}
		if strings.EqualFold(other.Username, acc.Username) {
			return oops.Conflict("username is already taken").WithCode("username_taken")
		}
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkAccountUnique(acc); err != nil {
		return err
	}
	acc.ID = s.newID()
	s.accounts[acc.ID] = copyAccount(acc)
	return nil
}

// UpdateAccount writes profile, credential and role fields. Ban and presence
// fields have their own methods and are left alone.
func (s *Store) UpdateAccount(ctx context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.accounts[acc.ID]
	if !ok {
		return db.NotFound
	}
	if err := s.checkAccountUnique(acc); err != nil {
		return err
	}
	if existing.IsBanned && acc.Role == models.RoleAdmin {
		return models.ErrBannedNotPromoted
	}
	updated := copyAccount(acc)
	updated.Ban = existing.Ban
	updated.IsOnline = existing.IsOnline
	updated.LastActivity = existing.LastActivity
	s.accounts[acc.ID] = updated
	return nil
}

func (s *Store) SetBan(ctx context.Context, accountID int, ban models.Ban) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return db.NotFound
	}
	if ban.IsBanned && acc.Role == models.RoleAdmin {
		return models.ErrAdminNotBannable
	}
	acc.Ban = ban
	return nil
}

func (s *Store) ClearExpiredBan(ctx context.Context, accountID int, expiredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ClearExpiredBan"); err != nil {
		return err
	}
	acc, ok := s.accounts[accountID]
	if !ok {
		return db.NotFound
	}
	if acc.IsBanned && acc.ExpiresAt != nil && acc.ExpiresAt.Equal(expiredAt) {
		acc.Ban = models.Ban{}
	}
	return nil
}

func (s *Store) TouchAccount(ctx context.Context, accountID int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("TouchAccount"); err != nil {
		return err
	}
	acc, ok := s.accounts[accountID]
	if !ok {
		return db.NotFound
	}
	acc.IsOnline = true
	acc.LastActivity = now
	return nil
}

func (s *Store) SetOffline(ctx context.Context, accountID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return db.NotFound
	}
	acc.IsOnline = false
	return nil
}

func (s *Store) MarkIdleOffline(ctx context.Context, lastActiveBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("MarkIdleOffline"); err != nil {
		return 0, err
	}
	var n int64
	for _, acc := range s.accounts {
		if acc.IsOnline && acc.LastActivity.Before(lastActiveBefore) {
			acc.IsOnline = false
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAccount(ctx context.Context, accountID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DeleteAccount"); err != nil {
		return err
	}
	if _, ok := s.accounts[accountID]; !ok {
		return db.NotFound
	}
	delete(s.accounts, accountID)
	return nil
}

func (s *Store) CountAccounts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), nil
}

/*
 * Articles
 */

func (s *Store) GetArticle(ctx context.Context, id int) (*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetArticle"); err != nil {
		return nil, err
	}
	a, ok := s.articles[id]
	if !ok {
		return nil, db.NotFound
	}
	return copyArticle(a), nil
}

func articleMatches(a *models.Article, q models.ArticleQuery) bool {
	if !q.IncludeUnpublished && !a.Published {
		return false
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(a.Title), strings.ToLower(q.Search)) {
		return false
	}
	if q.CategoryID != nil && (a.CategoryID == nil || *a.CategoryID != *q.CategoryID) {
		return false
	}
	if q.AuthorID != nil && a.AuthorID != *q.AuthorID {
		return false
	}
	if q.From != nil && a.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && a.CreatedAt.After(*q.To) {
		return false
	}
	if q.Tag != "" {
		found := false
		for _, tag := range a.Tags {
			if strings.EqualFold(tag, q.Tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Store) newestArticles(match func(a *models.Article) bool) []*models.Article {
	var result []*models.Article
	for _, a := range s.articles {
		if match(a) {
			result = append(result, copyArticle(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return before(result[j].CreatedAt, result[j].ID, result[i].CreatedAt, result[i].ID)
	})
	return result
}

func (s *Store) ListArticles(ctx context.Context, q models.ArticleQuery) ([]*models.Article, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.newestArticles(func(a *models.Article) bool { return articleMatches(a, q) })
	return paginate(all, q.Page, q.Limit), len(all), nil
}

func (s *Store) ListArticlesByAuthor(ctx context.Context, authorID int) ([]*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestArticles(func(a *models.Article) bool { return a.AuthorID == authorID }), nil
}

func (s *Store) ListLikedArticles(ctx context.Context, accountID int) ([]*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestArticles(func(a *models.Article) bool {
		_, liked := s.likes[likeKey{articleID: a.ID, accountID: accountID}]
		return liked
	}), nil
}

func (s *Store) SuggestArticles(ctx context.Context, query string, limit int) ([]*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.newestArticles(func(a *models.Article) bool {
		return articleMatches(a, models.ArticleQuery{Search: query})
	})
	return paginate(all, 1, limit), nil
}

func (s *Store) CreateArticle(ctx context.Context, a *models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.newID()
	s.articles[a.ID] = copyArticle(a)
	return nil
}

// UpdateArticle writes the editable fields. Views and likes are counters with
// their own methods.
func (s *Store) UpdateArticle(ctx context.Context, a *models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.articles[a.ID]
	if !ok {
		return db.NotFound
	}
	updated := copyArticle(a)
	updated.Views = existing.Views
	updated.LikesCount = existing.LikesCount
	updated.CreatedAt = existing.CreatedAt
	s.articles[a.ID] = updated
	return nil
}

func (s *Store) DeleteArticle(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DeleteArticle"); err != nil {
		return err
	}
	if _, ok := s.articles[id]; !ok {
		return db.NotFound
	}
	delete(s.articles, id)
	for k := range s.likes {
		if k.articleID == id {
			delete(s.likes, k)
		}
	}
	return nil
}

func (s *Store) IncrementViews(ctx context.Context, id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return 0, db.NotFound
	}
	a.Views++
	return a.Views, nil
}

func (s *Store) ToggleLike(ctx context.Context, articleID, accountID int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[articleID]
	if !ok {
		return false, 0, db.NotFound
	}
	key := likeKey{articleID: articleID, accountID: accountID}
	if _, liked := s.likes[key]; liked {
		delete(s.likes, key)
		a.LikesCount--
		return false, a.LikesCount, nil
	}
	s.likes[key] = struct{}{}
	a.LikesCount++
	return true, a.LikesCount, nil
}

func (s *Store) HasLiked(ctx context.Context, articleID, accountID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, liked := s.likes[likeKey{articleID: articleID, accountID: accountID}]
	return liked, nil
}

func (s *Store) RemoveLikesByAccount(ctx context.Context, accountID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.likes {
		if k.accountID == accountID {
			delete(s.likes, k)
			if a, ok := s.articles[k.articleID]; ok {
				a.LikesCount--
			}
		}
	}
	return nil
}

func (s *Store) CountArticles(ctx context.Context, authorID *int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.articles {
		if authorID == nil || a.AuthorID == *authorID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountArticlesInCategory(ctx context.Context, categoryID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.articles {
		if a.CategoryID != nil && *a.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (s *Store) TotalViews(ctx context.Context, authorID *int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, a := range s.articles {
		if authorID == nil || a.AuthorID == *authorID {
			total += a.Views
		}
	}
	return total, nil
}

/*
 * Categories
 */

func (s *Store) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, db.NotFound
	}
	return copyCategory(c), nil
}

func (s *Store) FindCategoryConflict(ctx context.Context, name, slug string, excludeID int) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == excludeID {
			continue
		}
		if strings.EqualFold(c.Name, name) || c.Slug == slug {
			return copyCategory(c), nil
		}
	}
	return nil, db.NotFound
}

func (s *Store) ListCategories(ctx context.Context) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		result = append(result, copyCategory(c))
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.newID()
	s.categories[c.ID] = copyCategory(c)
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return db.NotFound
	}
	s.categories[c.ID] = copyCategory(c)
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return db.NotFound
	}
	for _, a := range s.articles {
		if a.CategoryID != nil && *a.CategoryID == id {
			return models.ErrCategoryInUse
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CountCategories(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.categories), nil
}

/*
 * Comments
 */

func (s *Store) GetComment(ctx context.Context, id int) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, db.NotFound
	}
	return copyComment(c), nil
}

func (s *Store) filterComments(match func(c *models.Comment) bool, oldestFirst bool) []*models.Comment {
	result := []*models.Comment{}
	for _, c := range s.comments {
		if match(c) {
			result = append(result, copyComment(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if oldestFirst {
			return before(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID)
		}
		return before(result[j].CreatedAt, result[j].ID, result[i].CreatedAt, result[i].ID)
	})
	return result
}

func (s *Store) ListCommentsByArticle(ctx context.Context, articleID int) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterComments(func(c *models.Comment) bool { return c.ArticleID == articleID }, true), nil
}

func (s *Store) ListCommentsByAuthor(ctx context.Context, authorID int) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterComments(func(c *models.Comment) bool { return c.AuthorID == authorID }, false), nil
}

func (s *Store) ListComments(ctx context.Context) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterComments(func(c *models.Comment) bool { return true }, false), nil
}

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.newID()
	s.comments[c.ID] = copyComment(c)
	return nil
}

func (s *Store) UpdateComment(ctx context.Context, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.comments[c.ID]
	if !ok {
		return db.NotFound
	}
	existing.Content = c.Content
	existing.Approved = c.Approved
	existing.UpdatedAt = c.UpdatedAt
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DeleteComment"); err != nil {
		return err
	}
	if _, ok := s.comments[id]; !ok {
		return db.NotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *Store) DeleteCommentsByArticle(ctx context.Context, articleID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.comments {
		if c.ArticleID == articleID {
			delete(s.comments, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountComments(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments), nil
}

/*
 * Notifications
 */

func (s *Store) GetNotification(ctx context.Context, id int) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, db.NotFound
	}
	return copyNotification(n), nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.newID()
	s.notifications[n.ID] = copyNotification(n)
	return nil
}

func (s *Store) CreateNotifications(ctx context.Context, ns []*models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateNotifications"); err != nil {
		return err
	}
	for _, n := range ns {
		n.ID = s.newID()
		s.notifications[n.ID] = copyNotification(n)
	}
	return nil
}

func (s *Store) newestNotifications(match func(n *models.Notification) bool) []*models.Notification {
	result := []*models.Notification{}
	for _, n := range s.notifications {
		if match(n) {
			result = append(result, copyNotification(n))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return before(result[j].CreatedAt, result[j].ID, result[i].CreatedAt, result[i].ID)
	})
	return result
}

func (s *Store) ListNotificationsForRecipient(ctx context.Context, recipientID, page, limit int) (models.NotificationPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.newestNotifications(func(n *models.Notification) bool { return n.RecipientID == recipientID })
	unread := 0
	for _, n := range all {
		if !n.IsRead {
			unread++
		}
	}
	return models.NotificationPage{
		Items:       paginate(all, page, limit),
		Total:       len(all),
		UnreadCount: unread,
	}, nil
}

func (s *Store) ListAllNotifications(ctx context.Context, page, limit int) ([]*models.Notification, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.newestNotifications(func(n *models.Notification) bool { return true })
	return paginate(all, page, limit), len(all), nil
}

func (s *Store) CountUnread(ctx context.Context, recipientID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, notif := range s.notifications {
		if notif.RecipientID == recipientID && !notif.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *Store) EditNotification(ctx context.Context, id int, apply func(n *models.Notification) error) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.notifications[id]
	if !ok {
		return nil, db.NotFound
	}
	n := copyNotification(existing)
	if err := apply(n); err != nil {
		return nil, err
	}
	n.ID = existing.ID
	n.IsRead = existing.IsRead
	s.notifications[id] = copyNotification(n)
	return n, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, recipientID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipientID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteNotification(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return db.NotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *Store) DeleteNotificationsForRecipient(ctx context.Context, recipientID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("DeleteNotificationsForRecipient"); err != nil {
		return 0, err
	}
	var count int64
	for id, n := range s.notifications {
		if n.RecipientID == recipientID {
			delete(s.notifications, id)
			count++
		}
	}
	return count, nil
}
