package website

import (
	"net/http"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/accounts"
	"github.com/newsdesk-cms/newsdesk/src/articles"
	"github.com/newsdesk-cms/newsdesk/src/auth"
	"github.com/newsdesk-cms/newsdesk/src/bans"
	"github.com/newsdesk-cms/newsdesk/src/categories"
	"github.com/newsdesk-cms/newsdesk/src/comments"
	"github.com/newsdesk-cms/newsdesk/src/email"
	"github.com/newsdesk-cms/newsdesk/src/images"
	"github.com/newsdesk-cms/newsdesk/src/newsurl"
	"github.com/newsdesk-cms/newsdesk/src/notifications"
	"github.com/newsdesk-cms/newsdesk/src/perms"
)

// App is everything a handler can reach. Handlers get it as c.App.
type App struct {
	Accounts      *accounts.Service
	Sessions      *auth.Manager
	Bans          *bans.Controller
	Articles      *articles.Service
	Comments      *comments.Service
	Categories    *categories.Service
	Notifications *notifications.Service
	Mailer        *email.Mailer
	Images        images.Host

	// Origin allowed to call the API from a browser. Empty allows any.
	FrontendOrigin string

	Streams *StreamHub

	// How long login and forgot-password take at minimum.
	SecurityDelay time.Duration
}

func attachApp(app *App) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.App = app
			return h(c)
		}
	}
}

func NewWebsiteRoutes(app *App) http.Handler {
	router := &Router{}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			trackRequestPerf,
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
			corsMiddleware(app.FrontendOrigin),
			attachApp(app),
			loadSession(app.Sessions),
		},
	}

	routes.GET(newsurl.RegexHealth, Health)

	// Anyone
	delayed := routes.WithMiddleware(securityTimer(app.SecurityDelay))
	routes.POST(newsurl.RegexRegister, Register)
	delayed.POST(newsurl.RegexLogin, Login)
	routes.GET(newsurl.RegexVerifyEmail, VerifyEmail)
	routes.POST(newsurl.RegexVerifyEmail, VerifyEmail)
	delayed.POST(newsurl.RegexForgotPassword, ForgotPassword)
	routes.POST(newsurl.RegexResetPassword, ResetPassword)

	routes.GET(newsurl.RegexNewsList, NewsList)
	routes.GET(newsurl.RegexNewsSuggestions, NewsSuggestions)
	routes.GET(newsurl.RegexNewsArticle, NewsArticle)
	routes.GET(newsurl.RegexArticleComments, ArticleComments)
	routes.GET(newsurl.RegexArticleCommentThread, ArticleCommentThread)
	routes.GET(newsurl.RegexCategories, CategoryList)
	routes.GET(newsurl.RegexCategory, CategoryGet)
	routes.POST(newsurl.RegexFeedback, Feedback)

	// Signed in, not banned
	authed := routes.WithMiddleware(needsAuth(app.Sessions))
	authed.POST(newsurl.RegexLogout, Logout)
	authed.PUT(newsurl.RegexChangePassword, ChangePassword)
	authed.GET(newsurl.RegexProfile, Profile)
	authed.PUT(newsurl.RegexProfile, UpdateProfile)
	authed.POST(newsurl.RegexAvatar, UploadAvatar)
	authed.GET(newsurl.RegexMyComments, MyComments)
	authed.GET(newsurl.RegexLikedNews, LikedNews)
	authed.GET(newsurl.RegexMyNotifications, MyNotifications)
	authed.GET(newsurl.RegexUnreadCount, UnreadCount)
	authed.GET(newsurl.RegexNotificationStream, NotificationStream)
	authed.PUT(newsurl.RegexMarkAllRead, MarkAllRead)
	authed.PUT(newsurl.RegexMarkRead, MarkRead)

	authed.POST(newsurl.RegexNewsLike, NewsLike)
	authed.POST(newsurl.RegexNewsList, NewsCreate)
	authed.PUT(newsurl.RegexNewsArticle, NewsUpdate)
	authed.DELETE(newsurl.RegexNewsArticle, NewsDelete)
	authed.WithMiddleware(requires(perms.ImageUpload)).POST(newsurl.RegexNewsUpload, NewsUpload)

	authed.POST(newsurl.RegexComments, CommentCreate)
	authed.PUT(newsurl.RegexComment, CommentUpdate)
	authed.DELETE(newsurl.RegexComment, CommentDelete)
	authed.PUT(newsurl.RegexCommentApprove, CommentApprove)

	authed.POST(newsurl.RegexCategories, CategoryCreate)
	authed.PUT(newsurl.RegexCategory, CategoryUpdate)
	authed.DELETE(newsurl.RegexCategory, CategoryDelete)
	authed.WithMiddleware(requires(perms.CategoryWrite)).POST(newsurl.RegexCategoryUpload, CategoryUpload)

	// Editors
	editor := authed.WithMiddleware(requires(perms.EditorDashboard))
	editor.GET(newsurl.RegexEditorStats, EditorStats)
	editor.GET(newsurl.RegexEditorNews, EditorNews)

	// Admins
	admin := authed.WithMiddleware(requires(perms.AdminDashboard))
	admin.GET(newsurl.RegexAdminStats, AdminStats)
	admin.GET(newsurl.RegexAdminUsers, AdminUsers)
	admin.DELETE(newsurl.RegexAdminUser, AdminDeleteUser)
	admin.PUT(newsurl.RegexAdminUserRole, AdminChangeRole)
	admin.POST(newsurl.RegexAdminBan, AdminBan)
	admin.POST(newsurl.RegexAdminUnban, AdminUnban)
	admin.GET(newsurl.RegexAdminNews, AdminNews)
	admin.PUT(newsurl.RegexAdminNewsToggle, AdminTogglePublish)
	admin.GET(newsurl.RegexAdminComments, AdminComments)
	admin.DELETE(newsurl.RegexAdminComment, AdminDeleteComment)
	admin.GET(newsurl.RegexAdminNotifications, AdminNotifications)
	admin.POST(newsurl.RegexAdminNotifications, AdminSendNotification)
	admin.POST(newsurl.RegexAdminBroadcast, AdminBroadcast)
	admin.PUT(newsurl.RegexAdminNotification, AdminEditNotification)
	admin.DELETE(newsurl.RegexAdminNotification, AdminDeleteNotification)

	routes.AnyMethod(newsurl.RegexCatchAll, FourOhFour)

	return router
}

func Health(c *RequestContext) ResponseData {
	return c.Ok(map[string]string{"status": "ok"})
}

// corsMiddleware lets the browser frontend call the API and answers
// preflight requests on its own.
func corsMiddleware(origin string) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			allow := origin
			if allow == "" {
				allow = "*"
			}

			var res ResponseData
			if c.Req.Method == http.MethodOptions {
				res.StatusCode = http.StatusNoContent
				res.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				res.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				res.Header().Set("Access-Control-Max-Age", "600")
			} else {
				res = h(c)
			}
			res.Header().Set("Access-Control-Allow-Origin", allow)
			res.Header().Add("Vary", "Origin")
			return res
		}
	}
}
