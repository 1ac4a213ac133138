package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/dmitrijs2005/userdir/internal/cryptox"
	"github.com/dmitrijs2005/userdir/internal/server/auth"
	"github.com/google/uuid"
)

// Accounts implements the login and password reset flows on top of the
// directory. It owns the session and reset tokens stored in each record.
type Accounts struct {
	dir    *Service
	tokens *auth.Issuer
}

func NewAccounts(dir *Service, tokens *auth.Issuer) *Accounts {
	return &Accounts{dir: dir, tokens: tokens}
}

// Register creates a user with a hashed password and a fresh session.
func (a *Accounts) Register(ctx context.Context, email, password string, whiteList []string) (UserRecord, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return UserRecord{}, fmt.Errorf("%w: empty email", common.ErrorValidation)
	}

	if _, ok := a.dir.GetByEmail(email); ok {
		return UserRecord{}, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, email)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return UserRecord{}, err
	}

	r := UserRecord{
		ID:                       uuid.NewString(),
		Email:                    email,
		Password:                 hash,
		ClientIPAddressWhiteList: whiteList,
	}
	if err := a.newSession(&r, ""); err != nil {
		return UserRecord{}, err
	}

	return a.dir.Create(ctx, r)
}

// Login checks the password and the client address, then rotates both
// session tokens. Every rejection is common.ErrorUnauthorized.
func (a *Accounts) Login(ctx context.Context, email, password, clientIP string) (UserRecord, error) {
	r, ok := a.dir.GetByEmail(email)
	if !ok {
		return UserRecord{}, common.ErrorUnauthorized
	}

	match, err := cryptox.VerifyPassword(password, r.Password)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	if !match || !r.AllowsIP(clientIP) {
		return UserRecord{}, common.ErrorUnauthorized
	}

	if err := a.newSession(&r, clientIP); err != nil {
		return UserRecord{}, err
	}
	return a.dir.Update(ctx, r)
}

// Authenticate resolves a session JWT to its user.
func (a *Accounts) Authenticate(jwtToken string) (UserRecord, error) {
	claims, err := a.tokens.Parse(jwtToken, auth.PurposeSession)
	if err != nil {
		return UserRecord{}, err
	}

	r, ok := a.dir.GetByAuthJwtToken(jwtToken)
	if !ok || r.ID != claims.Subject {
		return UserRecord{}, common.ErrorUnauthorized
	}
	return r, nil
}

// RequestReset puts the user into the reset pending state.
func (a *Accounts) RequestReset(ctx context.Context, email string) (UserRecord, error) {
	r, ok := a.dir.GetByEmail(email)
	if !ok {
		return UserRecord{}, fmt.Errorf("%w: %s", common.ErrorNotFound, email)
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return UserRecord{}, err
	}
	jwtToken, err := a.tokens.ResetToken(r.ID, r.Email)
	if err != nil {
		return UserRecord{}, err
	}

	r.PasswordResetToken = token
	r.PasswordResetJwtToken = jwtToken
	return a.dir.Update(ctx, r)
}

// ChangePassword completes a reset. token may be either reset token; in both
// cases the pending reset JWT must still be valid. Both reset tokens are
// cleared.
func (a *Accounts) ChangePassword(ctx context.Context, token, newPassword string) (UserRecord, error) {
	var (
		r   UserRecord
		err error
	)
	if byOpaque, ok := a.dir.GetByPasswordResetToken(token); ok {
		r, err = a.byResetJwt(byOpaque.PasswordResetJwtToken)
	} else {
		r, err = a.byResetJwt(token)
	}
	if err != nil {
		return UserRecord{}, err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return UserRecord{}, err
	}

	r.Password = hash
	r.PasswordResetToken = ""
	r.PasswordResetJwtToken = ""
	return a.dir.Update(ctx, r)
}

func (a *Accounts) byResetJwt(token string) (UserRecord, error) {
	claims, err := a.tokens.Parse(token, auth.PurposeReset)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return UserRecord{}, err
		}
		return UserRecord{}, fmt.Errorf("%w: unknown reset token", common.ErrInvalidToken)
	}

	r, ok := a.dir.GetByPasswordResetJwtToken(token)
	if !ok || r.ID != claims.Subject {
		return UserRecord{}, fmt.Errorf("%w: unknown reset token", common.ErrInvalidToken)
	}
	return r, nil
}

func (a *Accounts) newSession(r *UserRecord, clientIP string) error {
	jwtToken, err := a.tokens.SessionToken(r.ID, r.Email, clientIP)
	if err != nil {
		return err
	}
	r.AuthToken = uuid.NewString()
	r.AuthJwtToken = jwtToken
	return nil
}
