package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "sliceline"

// Claims carries the registered JWT claims plus the embedded user record.
// Embedding the user lets middleware render the principal without a store
// round trip; Authenticate still re-fetches roles from the directory.
type Claims struct {
	User Principal `json:"user"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens with a process-wide HS256 secret.
// The secret is fixed at construction and never mutated afterwards.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithIssuer overrides the issuer claim stamped on new tokens.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		if s := strings.TrimSpace(issuer); s != "" {
			c.issuer = s
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec from the configured signing secret.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSigningUnavailable
	}
	c := &Codec{secret: []byte(secret), issuer: defaultIssuer, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for the user with issued-at now and expiry now+ttl.
func (c *Codec) Issue(user *User, ttl time.Duration) (string, time.Time, error) {
	if user == nil || user.ID == 0 {
		return "", time.Time{}, errors.New("user is required")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("ttl must be greater than zero")
	}
	now := c.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		User: PrincipalFromUser(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and registered claims and returns the embedded
// claims. Malformed, expired, and otherwise invalid tokens are reported with
// distinct sentinels so callers can shape responses precisely.
func (c *Codec) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMalformedToken
	}
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformedToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithIssuer(c.issuer))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrInvalidToken
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SubjectID returns the numeric user id carried in the subject claim.
func (cl *Claims) SubjectID() (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(cl.Subject))
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Fingerprint derives the stable revocation key for a token. Storing the
// digest instead of the token keeps live credentials out of the database.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
