package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/newsdesk-cms/newsdesk/src/models"
	"github.com/newsdesk-cms/newsdesk/src/oops"
)

const (
	CodeTokenMissing = "token_missing"
	CodeTokenExpired = "token_expired"
	CodeTokenInvalid = "token_invalid"
)

type TokenPurpose string

const (
	PurposeSession      TokenPurpose = "session"
	PurposeVerification TokenPurpose = "verify_email"
	PurposeReset        TokenPurpose = "reset_password"
)

type Claims struct {
	AccountID int          `json:"id"`
	Role      models.Role  `json:"role,omitempty"`
	Purpose   TokenPurpose `json:"purpose"`
	jwt.RegisteredClaims
}

/*
TokenIssuer signs and verifies the HS256 tokens used for sessions, email
verification and password resets. The purpose claim keeps one kind of token
from being accepted as another.
*/
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(secret string, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), now: now}
}

func (ti *TokenIssuer) Issue(purpose TokenPurpose, accountID int, role models.Role, ttl time.Duration) (string, time.Time, error) {
	issuedAt := ti.now()
	expiresAt := issuedAt.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: accountID,
		Role:      role,
		Purpose:   purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, oops.New(err, "failed to sign %s token", purpose)
	}
	return signed, expiresAt, nil
}

/*
Verify checks signature, expiry and purpose. Expired tokens fail with code
token_expired; anything else wrong with the token fails with token_invalid.
*/
func (ti *TokenIssuer) Verify(raw string, purpose TokenPurpose) (*Claims, error) {
	if raw == "" {
		return nil, oops.Unauthorized("no token provided").WithCode(CodeTokenMissing)
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (interface{}, error) {
			return ti.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Unauthorized("token has expired").WithCode(CodeTokenExpired)
		}
		return nil, oops.Unauthorized("token is invalid").WithCode(CodeTokenInvalid)
	}
	if claims.Purpose != purpose || claims.AccountID == 0 {
		return nil, oops.Unauthorized("token is invalid").WithCode(CodeTokenInvalid)
	}

	return &claims, nil
}
