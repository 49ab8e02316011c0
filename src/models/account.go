package models

import (
	"errors"
	"time"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var AllRoles = []Role{RoleUser, RoleEditor, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// Stores refuse writes that would leave a banned admin behind.
var (
	ErrAdminNotBannable  = errors.New("admins cannot be banned")
	ErrBannedNotPromoted = errors.New("banned accounts cannot become admins")
)

func (r Role) IsStaff() bool {
	return r == RoleEditor || r == RoleAdmin
}

// Ban is the ban sub-record of an account. A nil ExpiresAt on a banned
// account means the ban is permanent.
type Ban struct {
	IsBanned  bool       `db:"is_banned"`
	Reason    string     `db:"ban_reason"`
	ExpiresAt *time.Time `db:"ban_expires_at"`
	BannedBy  *int       `db:"banned_by"`
	BannedAt  *time.Time `db:"banned_at"`
}

func (b Ban) IsPermanent() bool {
	return b.IsBanned && b.ExpiresAt == nil
}

type Account struct {
	ID int `db:"id"`

	Username string `db:"username"`
	Email    string `db:"email"`
	Password string `db:"password"` // encoded auth.HashedPassword
	Role     Role   `db:"role"`
	Avatar   string `db:"avatar"`

	IsVerified   bool      `db:"is_verified"`
	IsOnline     bool      `db:"is_online"`
	LastActivity time.Time `db:"last_activity"`

	VerificationToken   *string    `db:"verification_token"`
	VerificationExpires *time.Time `db:"verification_expires"`
	ResetToken          *string    `db:"reset_token"`
	ResetExpires        *time.Time `db:"reset_expires"`

	Ban

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (a *Account) Identity() Identity {
	return Identity{AccountID: a.ID, Role: a.Role}
}

// Identity is who is acting, as resolved from the store for this request.
type Identity struct {
	AccountID int
	Role      Role
}

func (id Identity) Is(accountID int) bool {
	return id.AccountID == accountID
}
