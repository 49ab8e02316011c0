/*
Package perms decides what each role may do. The coarse role/action matrix
lives in a casbin enforcer built at startup; ownership rules are layered on
top in Go because they depend on the resource being touched.
*/
package perms

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

type Action string

const (
	ReadPublished Action = "content:read"

	CommentWriteOwn Action = "comment:write-own"
	CommentModerate Action = "comment:moderate"
	CommentApprove  Action = "comment:approve"

	ArticleWriteOwn  Action = "article:write-own"
	ArticleWriteAny  Action = "article:write-any"
	ArticleDeleteOwn Action = "article:delete-own"
	ArticleDeleteAny Action = "article:delete-any"
	ArticlePublish   Action = "article:publish"
	ArticleLike      Action = "article:like"

	CategoryWrite  Action = "category:write"
	CategoryDelete Action = "category:delete"

	AccountChangeRole Action = "account:role"
	AccountBan        Action = "account:ban"
	AccountDelete     Action = "account:delete"
	AccountList       Action = "account:list"

	NotificationSend   Action = "notification:send"
	NotificationManage Action = "notification:manage"

	ImageUpload     Action = "image:upload"
	EditorDashboard Action = "dashboard:editor"
	AdminDashboard  Action = "dashboard:admin"
)

// Each role inherits everything granted to the roles below it.
var grants = map[models.Role][]Action{
	models.RoleUser: {
		ReadPublished,
		CommentWriteOwn,
		ArticleLike,
	},
	models.RoleEditor: {
		CommentModerate,
		ArticleWriteOwn,
		ArticleDeleteOwn,
		CategoryWrite,
		ImageUpload,
		EditorDashboard,
	},
	models.RoleAdmin: {
		CommentApprove,
		ArticleWriteAny,
		ArticleDeleteAny,
		ArticlePublish,
		CategoryDelete,
		AccountChangeRole,
		AccountBan,
		AccountDelete,
		AccountList,
		NotificationSend,
		NotificationManage,
		AdminDashboard,
	},
}

var enforcer *casbin.Enforcer

func init() {
	e, err := newEnforcer()
	if err != nil {
		panic(oops.New(err, "failed to build permission matrix"))
	}
	enforcer = e
}

func newEnforcer() (*casbin.Enforcer, error) {
	m := model.NewModel()
	m.AddDef("r", "r", "sub, act")
	m.AddDef("p", "p", "sub, act")
	m.AddDef("g", "g", "_, _")
	m.AddDef("e", "e", "some(where (p.eft == allow))")
	m.AddDef("m", "m", "g(r.sub, p.sub) && r.act == p.act")

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	for role, actions := range grants {
		for _, action := range actions {
			if _, err := e.AddPolicy(string(role), string(action)); err != nil {
				return nil, err
			}
		}
	}
	if _, err := e.AddGroupingPolicy(string(models.RoleEditor), string(models.RoleUser)); err != nil {
		return nil, err
	}
	if _, err := e.AddGroupingPolicy(string(models.RoleAdmin), string(models.RoleEditor)); err != nil {
		return nil, err
	}

	return e, nil
}

// CanPerform reports whether role may perform action at all, ignoring ownership.
func CanPerform(role models.Role, action Action) bool {
	if !role.Valid() {
		return false
	}
	ok, err := enforcer.Enforce(string(role), string(action))
	if err != nil {
		// The model is fixed at startup, so this only happens on a programming error.
		panic(oops.New(err, "permission check failed for %s/%s", role, action))
	}
	return ok
}

/*
CanModify combines the matrix with ownership: the actor may act on a resource
owned by ownerID if their role allows anyAction, or if they own it and their
role allows ownAction.
*/
func CanModify(actor models.Identity, ownAction, anyAction Action, ownerID int) bool {
	if CanPerform(actor.Role, anyAction) {
		return true
	}
	return actor.Is(ownerID) && CanPerform(actor.Role, ownAction)
}

func Require(actor models.Identity, action Action) error {
	if !CanPerform(actor.Role, action) {
		return forbidden(actor, action)
	}
	return nil
}

func RequireModify(actor models.Identity, ownAction, anyAction Action, ownerID int) error {
	if !CanModify(actor, ownAction, anyAction, ownerID) {
		return forbidden(actor, ownAction)
	}
	return nil
}

func forbidden(actor models.Identity, action Action) error {
	return oops.Forbidden("you do not have permission to do that").
		WithCode("forbidden").
		WithDetail("action", string(action)).
		WithDetail("role", fmt.Sprint(actor.Role))
}
