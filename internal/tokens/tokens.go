package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired means the signature checked out but the token is past exp.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers malformed tokens, bad signatures and wrong secrets.
	ErrInvalid = errors.New("invalid token")
)

// Claims is the payload of every issued token. Subject carries the user id,
// ID the per-token jti, Refresh marks refresh tokens.
type Claims struct {
	Email   string `json:"email"`
	Refresh bool   `json:"refresh"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens with a process-wide HS256 secret.
// Rotating the secret invalidates everything outstanding.
type Codec struct {
	Secret []byte
}

func NewCodec(secret []byte) *Codec {
	return &Codec{Secret: secret}
}

func (c *Codec) Encode(userID uuid.UUID, email string, ttl time.Duration, refresh bool) (string, error) {
	claims := Claims{
		Email:   email,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.Secret)
}

// Decode verifies signature and expiry. Expiry and malformed/tampered input
// are reported as distinct errors, callers reject both.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return c.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !tkn.Valid {
		return nil, ErrInvalid
	}
	return &claims, nil
}

// UserID parses the subject claim. A missing or malformed id is a payload
// shape violation, separate from signature or expiry problems.
func (cl *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(cl.Subject)
}
