// Package identity verifies the session tokens issued by the external identity
// provider and carries the authenticated user through request contexts.
package identity

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid session token")

// Metadata is what the parent entered at signup.
type Metadata struct {
	Nom       string `mapstructure:"nom"`
	Prenom    string `mapstructure:"prenom"`
	Telephone string `mapstructure:"telephone"`
}

type User struct {
	ID       string
	Email    string
	Metadata Metadata
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks an HS256 token and extracts the user. sub and exp are mandatory.
func (v *Verifier) Verify(tokenString string) (User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return User{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return User{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return User{}, errors.Wrap(ErrInvalidToken, "missing subject")
	}
	u := User{ID: sub}
	if email, ok := claims["email"].(string); ok {
		u.Email = email
	}
	if raw, ok := claims["user_metadata"].(map[string]interface{}); ok {
		// unknown keys are ignored; a malformed metadata blob is not fatal
		_ = mapstructure.Decode(raw, &u.Metadata)
	}
	return u, nil
}

// Sign issues a token in the provider's format. Used by tests and local setups.
func (v *Verifier) Sign(u User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"user_metadata": map[string]interface{}{
			"nom":       u.Metadata.Nom,
			"prenom":    u.Metadata.Prenom,
			"telephone": u.Metadata.Telephone,
		},
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}
