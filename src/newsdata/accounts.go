package newsdata

import (
	"context"
	"time"

	"github.com/newsdesk-cms/newsdesk/src/db"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

func (s *Store) GetAccount(ctx context.Context, id int) (*models.Account, error) {
	return db.QueryOne[models.Account](ctx, s.Conn,
		`
		---- Get account
		SELECT $columns FROM account WHERE id = $1
		`,
		id,
	)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return db.QueryOne[models.Account](ctx, s.Conn,
		`SELECT $columns FROM account WHERE LOWER(email) = LOWER($1)`,
		email,
	)
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return db.QueryOne[models.Account](ctx, s.Conn,
		`SELECT $columns FROM account WHERE LOWER(username) = LOWER($1)`,
		username,
	)
}

func (s *Store) GetAccountByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return db.QueryOne[models.Account](ctx, s.Conn,
		`SELECT $columns FROM account WHERE verification_token = $1`,
		token,
	)
}

func (s *Store) GetAccountByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return db.QueryOne[models.Account](ctx, s.Conn,
		`SELECT $columns FROM account WHERE reset_token = $1`,
		token,
	)
}

func (s *Store) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	accs, err := db.Query[models.Account](ctx, s.Conn,
		`SELECT $columns FROM account ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, oops.New(err, "failed to list accounts")
	}
	return accs, nil
}

func (s *Store) ListAccountIDs(ctx context.Context) ([]int, error) {
	ids, err := db.QueryScalar[int](ctx, s.Conn, `SELECT id FROM account ORDER BY id`)
	if err != nil {
		return nil, oops.New(err, "failed to list account ids")
	}
	return ids, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc *models.Account) error {
	id, err := db.QueryOneScalar[int](ctx, s.Conn,
		`
		INSERT INTO account (
			username, email, password, role, avatar,
			is_verified, is_online, last_activity,
			verification_token, verification_expires, reset_token, reset_expires,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
		`,
		acc.Username, acc.Email, acc.Password, acc.Role, acc.Avatar,
		acc.IsVerified, acc.IsOnline, acc.LastActivity,
		acc.VerificationToken, acc.VerificationExpires, acc.ResetToken, acc.ResetExpires,
		acc.CreatedAt, acc.UpdatedAt,
	)
	if err != nil {
		return conflict(err)
	}
	acc.ID = id
	return nil
}

// UpdateAccount writes profile, credential and role fields. Ban and presence
// fields have their own methods and are left alone.
func (s *Store) UpdateAccount(ctx context.Context, acc *models.Account) error {
	tag, err := s.Conn.Exec(ctx,
		`
		UPDATE account
		SET
			username = $2, email = $3, password = $4, role = $5, avatar = $6,
			is_verified = $7,
			verification_token = $8, verification_expires = $9,
			reset_token = $10, reset_expires = $11,
			updated_at = $12
		WHERE id = $1 AND NOT (is_banned AND $5 = 'admin')
		`,
		acc.ID,
		acc.Username, acc.Email, acc.Password, acc.Role, acc.Avatar,
		acc.IsVerified,
		acc.VerificationToken, acc.VerificationExpires,
		acc.ResetToken, acc.ResetExpires,
		acc.UpdatedAt,
	)
	if err != nil {
		return conflict(err)
	}
	if tag.RowsAffected() == 0 {
		return s.refused(ctx, acc.ID, models.ErrBannedNotPromoted)
	}
	return nil
}

func (s *Store) SetBan(ctx context.Context, accountID int, ban models.Ban) error {
	tag, err := s.Conn.Exec(ctx,
		`
		UPDATE account
		SET is_banned = $2, ban_reason = $3, ban_expires_at = $4, banned_by = $5, banned_at = $6
		WHERE id = $1 AND NOT ($2 AND role = 'admin')
		`,
		accountID, ban.IsBanned, ban.Reason, ban.ExpiresAt, ban.BannedBy, ban.BannedAt,
	)
	if err != nil {
		return oops.New(err, "failed to set ban")
	}
	if tag.RowsAffected() == 0 {
		return s.refused(ctx, accountID, models.ErrAdminNotBannable)
	}
	return nil
}

// refused explains an account UPDATE that matched nothing: either the account
// is gone or the guard in the WHERE clause turned the write down.
func (s *Store) refused(ctx context.Context, accountID int, guard error) error {
	exists, err := db.QueryOneScalar[bool](ctx, s.Conn,
		`SELECT EXISTS (SELECT 1 FROM account WHERE id = $1)`,
		accountID,
	)
	if err != nil {
		return oops.New(err, "failed to check account %d", accountID)
	}
	if !exists {
		return db.NotFound
	}
	return guard
}

// ClearExpiredBan only clears a ban whose expiry still matches, so a ban that
// was replaced in the meantime survives.
func (s *Store) ClearExpiredBan(ctx context.Context, accountID int, expiredAt time.Time) error {
	_, err := s.Conn.Exec(ctx,
		`
		UPDATE account
		SET is_banned = FALSE, ban_reason = '', ban_expires_at = NULL, banned_by = NULL, banned_at = NULL
		WHERE id = $1 AND is_banned AND ban_expires_at = $2
		`,
		accountID, expiredAt,
	)
	if err != nil {
		return oops.New(err, "failed to clear expired ban")
	}
	return nil
}

func (s *Store) TouchAccount(ctx context.Context, accountID int, now time.Time) error {
	tag, err := s.Conn.Exec(ctx,
		`
		---- Touch account
		UPDATE account SET is_online = TRUE, last_activity = $2 WHERE id = $1
		`,
		accountID, now,
	)
	if err != nil {
		return oops.New(err, "failed to touch account")
	}
	return affected(tag.RowsAffected())
}

func (s *Store) SetOffline(ctx context.Context, accountID int) error {
	tag, err := s.Conn.Exec(ctx,
		`UPDATE account SET is_online = FALSE WHERE id = $1`,
		accountID,
	)
	if err != nil {
		return oops.New(err, "failed to set account offline")
	}
	return affected(tag.RowsAffected())
}

func (s *Store) MarkIdleOffline(ctx context.Context, lastActiveBefore time.Time) (int64, error) {
	tag, err := s.Conn.Exec(ctx,
		`UPDATE account SET is_online = FALSE WHERE is_online AND last_activity < $1`,
		lastActiveBefore,
	)
	if err != nil {
		return 0, oops.New(err, "failed to mark idle accounts offline")
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteAccount(ctx context.Context, accountID int) error {
	tag, err := s.Conn.Exec(ctx, `DELETE FROM account WHERE id = $1`, accountID)
	if err != nil {
		return oops.New(err, "failed to delete account")
	}
	return affected(tag.RowsAffected())
}

func (s *Store) CountAccounts(ctx context.Context) (int, error) {
	return db.QueryOneScalar[int](ctx, s.Conn, `SELECT COUNT(*) FROM account`)
}
