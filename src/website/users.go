package website

import (
	"net/http"
	"strconv"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/accounts"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func Register(c *RequestContext) ResponseData {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}

	acc, err := c.App.Accounts.Register(c, accounts.RegisterInput{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Created(map[string]any{
		"message": "Registered. Check your email to verify your account.",
		"user":    accountView(acc),
	})
}

func Login(c *RequestContext) ResponseData {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}

	res, err := c.App.Accounts.Login(c, body.Email, body.Password)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(struct {
		Token     string      `json:"token"`
		ExpiresAt time.Time   `json:"expiresAt"`
		User      AccountView `json:"user"`
	}{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      accountView(res.Account),
	})
}

func Logout(c *RequestContext) ResponseData {
	if err := c.App.Accounts.Logout(c, c.Actor()); err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("Logged out")
}

// VerifyEmail takes the token from the query string (the link in the email)
// or from a JSON body.
func VerifyEmail(c *RequestContext) ResponseData {
	token := c.Req.URL.Query().Get("token")
	if token == "" && c.Req.Method == http.MethodPost {
		var body struct {
			Token string `json:"token"`
		}
		if err := c.ReadJson(&body); err != nil {
			return c.ErrorResponse(err)
		}
		token = body.Token
	}

	acc, err := c.App.Accounts.VerifyEmail(c, token)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(map[string]any{
		"message": "Email verified. You can now log in.",
		"user":    accountView(acc),
	})
}

func ForgotPassword(c *RequestContext) ResponseData {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	if err := c.App.Accounts.ForgotPassword(c, body.Email); err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("If that address is registered, a reset link is on its way.")
}

func ResetPassword(c *RequestContext) ResponseData {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	if err := c.App.Accounts.ResetPassword(c, body.Token, body.Password); err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("Password reset. You can now log in.")
}

func ChangePassword(c *RequestContext) ResponseData {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	if err := c.App.Accounts.ChangePassword(c, c.Actor(), body.CurrentPassword, body.NewPassword); err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("Password changed")
}

func Profile(c *RequestContext) ResponseData {
	acc, err := c.App.Accounts.Profile(c, c.Actor())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(accountView(acc))
}

func UpdateProfile(c *RequestContext) ResponseData {
	var body struct {
		Username *string `json:"username"`
		Avatar   *string `json:"avatar"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}

	acc, err := c.App.Accounts.UpdateProfile(c, c.Actor(), accounts.ProfileInput{
		Username: body.Username,
		Avatar:   body.Avatar,
	})
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(accountView(acc))
}

func UploadAvatar(c *RequestContext) ResponseData {
	filename, content, err := readUpload(c)
	if err != nil {
		return c.ErrorResponse(err)
	}
	acc, err := c.App.Accounts.UploadAvatar(c, c.Actor(), filename, content)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(accountView(acc))
}

func MyComments(c *RequestContext) ResponseData {
	cms, err := c.App.Comments.ListByAuthor(c, c.Actor().AccountID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(commentViews(cms))
}

func LikedNews(c *RequestContext) ResponseData {
	liked, err := c.App.Accounts.LikedArticles(c, c.Actor())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(articleViews(liked))
}

func MyNotifications(c *RequestContext) ResponseData {
	page, limit, err := pageParams(c)
	if err != nil {
		return c.ErrorResponse(err)
	}
	p, err := c.App.Notifications.ListForRecipient(c, c.Actor(), page, limit)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(notificationPageView(p))
}

func UnreadCount(c *RequestContext) ResponseData {
	n, err := c.App.Notifications.UnreadCount(c, c.Actor().AccountID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(map[string]int{"unreadCount": n})
}

func MarkRead(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	n, err := c.App.Notifications.MarkRead(c, c.Actor(), id)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(notificationView(n))
}

func MarkAllRead(c *RequestContext) ResponseData {
	n, err := c.App.Notifications.MarkAllRead(c, c.Actor())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(map[string]int64{"updated": n})
}

// pageParams reads ?page= and ?limit=. Missing values are left as zero for
// the services to default.
func pageParams(c *RequestContext) (page int, limit int, err error) {
	q := c.Req.URL.Query()
	if page, err = intParam(q.Get("page"), "page"); err != nil {
		return 0, 0, err
	}
	if limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func intParam(v string, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, oops.InvalidInput("%s must be a number", name).WithCode("invalid_" + name).WithDetail("field", name)
	}
	return n, nil
}
