package website

import (
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/notifications"
)

func AdminStats(c *RequestContext) ResponseData {
	stats, err := c.App.Accounts.Stats(c, c.Actor())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(stats)
}

func AdminUsers(c *RequestContext) ResponseData {
	accs, err := c.App.Accounts.ListAccounts(c, c.Actor())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(accountViews(accs))
}

func AdminDeleteUser(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := c.App.Accounts.DeleteAccount(c, c.Actor(), id); err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("User deleted")
}

func AdminChangeRole(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	var body struct {
		Role models.Role `json:"role"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	acc, err := c.App.Accounts.ChangeRole(c, c.Actor(), id, body.Role)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(accountView(acc))
}

func AdminBan(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	var body struct {
		Reason   string `json:"reason"`
		Duration string `json:"duration"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	acc, err := c.App.Bans.Ban(c, c.Actor(), id, body.Reason, body.Duration)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(accountView(acc))
}

func AdminUnban(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	acc, err := c.App.Bans.Unban(c, c.Actor(), id)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(accountView(acc))
}

func AdminNews(c *RequestContext) ResponseData {
	q, err := articleQuery(c)
	if err != nil {
		return c.ErrorResponse(err)
	}
	p, err := c.App.Articles.ListAll(c, c.Actor(), q)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(articlePageView(p))
}

func AdminTogglePublish(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	a, err := c.App.Articles.TogglePublish(c, c.Actor(), id)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(articleView(a))
}

func AdminComments(c *RequestContext) ResponseData {
	cms, err := c.App.Comments.ListAll(c, c.Actor())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(commentViews(cms))
}

func AdminDeleteComment(c *RequestContext) ResponseData {
	return CommentDelete(c)
}

type notificationBody struct {
	RecipientID int             `json:"recipientId"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Type        models.Severity `json:"type"`
}

func (b notificationBody) message() notifications.Message {
	return notifications.Message{Title: b.Title, Message: b.Message, Type: b.Type}
}

func AdminNotifications(c *RequestContext) ResponseData {
	page, limit, err := pageParams(c)
	if err != nil {
		return c.ErrorResponse(err)
	}
	p, err := c.App.Notifications.ListAll(c, c.Actor(), page, limit)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(notificationPageView(p))
}

func AdminSendNotification(c *RequestContext) ResponseData {
	var body notificationBody
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	n, err := c.App.Notifications.SendDirect(c, c.Actor(), body.RecipientID, body.message())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Created(notificationView(n))
}

func AdminBroadcast(c *RequestContext) ResponseData {
	var body notificationBody
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	sent, err := c.App.Notifications.Broadcast(c, c.Actor(), body.message())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Created(map[string]int{"sent": sent})
}

func AdminEditNotification(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	var body struct {
		Title   *string          `json:"title"`
		Message *string          `json:"message"`
		Type    *models.Severity `json:"type"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	n, err := c.App.Notifications.Edit(c, c.Actor(), id, notifications.Edit{
		Title:   body.Title,
		Message: body.Message,
		Type:    body.Type,
	})
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(notificationView(n))
}

func AdminDeleteNotification(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := c.App.Notifications.Delete(c, c.Actor(), id); err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("Notification deleted")
}
