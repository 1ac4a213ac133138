package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/userdir/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose tells session tokens and password reset tokens apart so one can
// not be replayed as the other.
type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeReset   Purpose = "reset"
)

// Claims holds the registered claims plus the user's email, the token
// purpose and, for session tokens, the client address it was issued to.
// Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email    string  `json:"email"`
	Purpose  Purpose `json:"purpose"`
	ClientIP string  `json:"client_ip,omitempty"`
}

// Issuer mints and verifies HS256 tokens for the user directory.
type Issuer struct {
	secretKey     []byte
	authValidity  time.Duration
	resetValidity time.Duration
	now           func() time.Time
}

func NewIssuer(secretKey string, authValidity, resetValidity time.Duration) *Issuer {
	return &Issuer{
		secretKey:     []byte(secretKey),
		authValidity:  authValidity,
		resetValidity: resetValidity,
		now:           time.Now,
	}
}

// SessionToken returns the authJwtToken for a login from clientIP.
func (i *Issuer) SessionToken(userID, email, clientIP string) (string, error) {
	return i.generate(Claims{Email: email, Purpose: PurposeSession, ClientIP: clientIP}, userID, i.authValidity)
}

// ResetToken returns the passwordResetJwtToken for a pending reset.
func (i *Issuer) ResetToken(userID, email string) (string, error) {
	return i.generate(Claims{Email: email, Purpose: PurposeReset}, userID, i.resetValidity)
}

func (i *Issuer) generate(claims Claims, userID string, validity time.Duration) (string, error) {
	now := i.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Parse verifies tokenString and checks it was minted for purpose.
// Expired tokens yield common.ErrTokenExpired, every other failure
// common.ErrInvalidToken.
func (i *Issuer) Parse(tokenString string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: want %s token, got %q", common.ErrInvalidToken, purpose, claims.Purpose)
	}

	return claims, nil
}
