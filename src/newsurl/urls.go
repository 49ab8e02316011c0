package newsurl

import (
	"net/url"
	"regexp"
	"strconv"

	"github.com/newsdesk-cms/newsdesk/src/oops"
)

/*
Every route regex matches a request path, and every Build function produces
a full URL whose path matches the regex of the same name. The router in
src/website is keyed on these regexes.
*/

var RegexHealth = regexp.MustCompile("^/api/health$")

func BuildHealth() string {
	return Url("/api/health", nil)
}

/*
* Users
 */

var RegexRegister = regexp.MustCompile("^/api/users/register$")

func BuildRegister() string {
	return Url("/api/users/register", nil)
}

var RegexLogin = regexp.MustCompile("^/api/users/login$")

func BuildLogin() string {
	return Url("/api/users/login", nil)
}

var RegexLogout = regexp.MustCompile("^/api/users/logout$")

func BuildLogout() string {
	return Url("/api/users/logout", nil)
}

var RegexVerifyEmail = regexp.MustCompile("^/api/users/verify-email$")

func BuildVerifyEmail() string {
	return Url("/api/users/verify-email", nil)
}

var RegexForgotPassword = regexp.MustCompile("^/api/users/forgot-password$")

func BuildForgotPassword() string {
	return Url("/api/users/forgot-password", nil)
}

var RegexResetPassword = regexp.MustCompile("^/api/users/reset-password$")

func BuildResetPassword() string {
	return Url("/api/users/reset-password", nil)
}

var RegexChangePassword = regexp.MustCompile("^/api/users/change-password$")

func BuildChangePassword() string {
	return Url("/api/users/change-password", nil)
}

var RegexProfile = regexp.MustCompile("^/api/users/profile$")

func BuildProfile() string {
	return Url("/api/users/profile", nil)
}

var RegexAvatar = regexp.MustCompile("^/api/users/avatar$")

func BuildAvatar() string {
	return Url("/api/users/avatar", nil)
}

var RegexMyComments = regexp.MustCompile("^/api/users/my-comments$")

func BuildMyComments() string {
	return Url("/api/users/my-comments", nil)
}

var RegexLikedNews = regexp.MustCompile("^/api/users/liked-news$")

func BuildLikedNews() string {
	return Url("/api/users/liked-news", nil)
}

var RegexMyNotifications = regexp.MustCompile("^/api/users/notifications$")

func BuildMyNotifications(page int) string {
	if page <= 1 {
		return Url("/api/users/notifications", nil)
	}
	return Url("/api/users/notifications", []Q{{"page", strconv.Itoa(page)}})
}

var RegexUnreadCount = regexp.MustCompile("^/api/users/notifications/unread-count$")

func BuildUnreadCount() string {
	return Url("/api/users/notifications/unread-count", nil)
}

var RegexNotificationStream = regexp.MustCompile("^/api/users/notifications/stream$")

func BuildNotificationStream() string {
	return Url("/api/users/notifications/stream", nil)
}

var RegexMarkAllRead = regexp.MustCompile("^/api/users/notifications/read-all$")

func BuildMarkAllRead() string {
	return Url("/api/users/notifications/read-all", nil)
}

var RegexMarkRead = regexp.MustCompile(`^/api/users/notifications/(?P<id>\d+)/read$`)

func BuildMarkRead(notificationID int) string {
	return Url("/api/users/notifications/"+id(notificationID)+"/read", nil)
}

/*
* News
 */

var RegexNewsList = regexp.MustCompile("^/api/news$")

func BuildNewsList(query []Q) string {
	return Url("/api/news", query)
}

var RegexNewsSuggestions = regexp.MustCompile("^/api/news/suggestions$")

func BuildNewsSuggestions(q string) string {
	return Url("/api/news/suggestions", []Q{{"q", q}})
}

var RegexNewsUpload = regexp.MustCompile("^/api/news/upload$")

func BuildNewsUpload() string {
	return Url("/api/news/upload", nil)
}

var RegexNewsArticle = regexp.MustCompile(`^/api/news/(?P<id>\d+)$`)

func BuildNewsArticle(articleID int) string {
	return Url("/api/news/"+id(articleID), nil)
}

var RegexNewsLike = regexp.MustCompile(`^/api/news/(?P<id>\d+)/like$`)

func BuildNewsLike(articleID int) string {
	return Url("/api/news/"+id(articleID)+"/like", nil)
}

/*
* Comments
 */

var RegexComments = regexp.MustCompile("^/api/comments$")

func BuildComments() string {
	return Url("/api/comments", nil)
}

var RegexArticleComments = regexp.MustCompile(`^/api/comments/news/(?P<newsid>\d+)$`)

func BuildArticleComments(articleID int) string {
	return Url("/api/comments/news/"+id(articleID), nil)
}

var RegexArticleCommentThread = regexp.MustCompile(`^/api/comments/news/(?P<newsid>\d+)/thread$`)

func BuildArticleCommentThread(articleID int) string {
	return Url("/api/comments/news/"+id(articleID)+"/thread", nil)
}

var RegexComment = regexp.MustCompile(`^/api/comments/(?P<id>\d+)$`)

func BuildComment(commentID int) string {
	return Url("/api/comments/"+id(commentID), nil)
}

var RegexCommentApprove = regexp.MustCompile(`^/api/comments/(?P<id>\d+)/approve$`)

func BuildCommentApprove(commentID int) string {
	return Url("/api/comments/"+id(commentID)+"/approve", nil)
}

/*
* Categories
 */

var RegexCategories = regexp.MustCompile("^/api/categories$")

func BuildCategories() string {
	return Url("/api/categories", nil)
}

var RegexCategoryUpload = regexp.MustCompile("^/api/categories/upload$")

func BuildCategoryUpload() string {
	return Url("/api/categories/upload", nil)
}

var RegexCategory = regexp.MustCompile(`^/api/categories/(?P<id>\d+)$`)

func BuildCategory(categoryID int) string {
	return Url("/api/categories/"+id(categoryID), nil)
}

/*
* Editor
 */

var RegexEditorStats = regexp.MustCompile("^/api/editor/stats$")

func BuildEditorStats() string {
	return Url("/api/editor/stats", nil)
}

var RegexEditorNews = regexp.MustCompile("^/api/editor/news$")

func BuildEditorNews() string {
	return Url("/api/editor/news", nil)
}

/*
* Admin
 */

var RegexAdminStats = regexp.MustCompile("^/api/admin/stats$")

func BuildAdminStats() string {
	return Url("/api/admin/stats", nil)
}

var RegexAdminUsers = regexp.MustCompile("^/api/admin/users$")

func BuildAdminUsers() string {
	return Url("/api/admin/users", nil)
}

var RegexAdminUser = regexp.MustCompile(`^/api/admin/users/(?P<id>\d+)$`)

func BuildAdminUser(accountID int) string {
	return Url("/api/admin/users/"+id(accountID), nil)
}

var RegexAdminUserRole = regexp.MustCompile(`^/api/admin/users/(?P<id>\d+)/role$`)

func BuildAdminUserRole(accountID int) string {
	return Url("/api/admin/users/"+id(accountID)+"/role", nil)
}

var RegexAdminBan = regexp.MustCompile(`^/api/admin/users/(?P<id>\d+)/ban$`)

func BuildAdminBan(accountID int) string {
	return Url("/api/admin/users/"+id(accountID)+"/ban", nil)
}

var RegexAdminUnban = regexp.MustCompile(`^/api/admin/users/(?P<id>\d+)/unban$`)

func BuildAdminUnban(accountID int) string {
	return Url("/api/admin/users/"+id(accountID)+"/unban", nil)
}

var RegexAdminNews = regexp.MustCompile("^/api/admin/news$")

func BuildAdminNews() string {
	return Url("/api/admin/news", nil)
}

var RegexAdminNewsToggle = regexp.MustCompile(`^/api/admin/news/(?P<id>\d+)/toggle$`)

func BuildAdminNewsToggle(articleID int) string {
	return Url("/api/admin/news/"+id(articleID)+"/toggle", nil)
}

var RegexAdminComments = regexp.MustCompile("^/api/admin/comments$")

func BuildAdminComments() string {
	return Url("/api/admin/comments", nil)
}

var RegexAdminComment = regexp.MustCompile(`^/api/admin/comments/(?P<id>\d+)$`)

func BuildAdminComment(commentID int) string {
	return Url("/api/admin/comments/"+id(commentID), nil)
}

var RegexAdminNotifications = regexp.MustCompile("^/api/admin/notifications$")

func BuildAdminNotifications() string {
	return Url("/api/admin/notifications", nil)
}

var RegexAdminBroadcast = regexp.MustCompile("^/api/admin/notifications/broadcast$")

func BuildAdminBroadcast() string {
	return Url("/api/admin/notifications/broadcast", nil)
}

var RegexAdminNotification = regexp.MustCompile(`^/api/admin/notifications/(?P<id>\d+)$`)

func BuildAdminNotification(notificationID int) string {
	return Url("/api/admin/notifications/"+id(notificationID), nil)
}

/*
* Feedback
 */

var RegexFeedback = regexp.MustCompile("^/api/feedback$")

func BuildFeedback() string {
	return Url("/api/feedback", nil)
}

var RegexCatchAll = regexp.MustCompile("^")

/*
* Frontend links
 */

func BuildFrontendVerifyEmail(frontendBase string, token string) string {
	return FrontendUrl(frontendBase, "/verify-email", []Q{{"token", token}})
}

func BuildFrontendResetPassword(frontendBase string, token string) string {
	return FrontendUrl(frontendBase, "/reset-password", []Q{{"token", token}})
}

func BuildFrontendArticle(frontendBase string, articleID int) string {
	return FrontendUrl(frontendBase, "/news/"+id(articleID), nil)
}

/*
* External
 */

// BuildMapEmbed is the Google Maps embed view centered on a point.
func BuildMapEmbed(apiKey string, lat, lng float64) string {
	center := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
	return "https://www.google.com/maps/embed/v1/view?key=" + url.QueryEscape(apiKey) + "&center=" + center + "&zoom=15"
}

func id(n int) string {
	if n < 1 {
		panic(oops.New(nil, "Invalid id (%d), must be >= 1", n))
	}
	return strconv.Itoa(n)
}
