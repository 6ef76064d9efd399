package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultTokenTTL = 24 * time.Hour

// Service orchestrates login, logout and request authentication over the
// token codec, the revocation store and the external user directory.
type Service struct {
	dir         UserDirectory
	revocations RevocationStore
	codec       *Codec
	tokenTTL    time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithTokenTTL overrides the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// NewService constructs the authenticator.
func NewService(dir UserDirectory, revocations RevocationStore, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if dir == nil {
		return nil, errors.New("user directory is required")
	}
	if revocations == nil {
		return nil, errors.New("revocation store is required")
	}
	if codec == nil {
		return nil, errors.New("token codec is required")
	}
	s := &Service{dir: dir, revocations: revocations, codec: codec, tokenTTL: defaultTokenTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a user with the default diner role and issues a token.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: name, email, and password are required", ErrValidation)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	user, err := s.dir.CreateUser(ctx, &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        []RoleAssignment{{Role: RoleDiner}},
	})
	if err != nil {
		return nil, "", err
	}
	token, _, err := s.codec.Issue(user, s.tokenTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks credentials and issues a fresh token. The failure shape never
// distinguishes an unknown user from a wrong password. Previously issued
// tokens stay valid until they expire or are revoked.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, "", ErrAuthentication
	}
	user, err := s.dir.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrAuthentication
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrAuthentication
	}
	token, _, err := s.codec.Issue(user, s.tokenTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout revokes the presented token. Revoking an already revoked token is
// not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return ErrAuthentication
	}
	return s.revocations.Revoke(ctx, Fingerprint(token), claims.ExpiresAt.Time)
}

// Authenticate verifies the token, rejects revoked credentials, and resolves
// the subject into a principal with current role assignments.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return Principal{}, ErrAuthentication
	}
	revoked, err := s.revocations.IsRevoked(ctx, Fingerprint(token))
	if err != nil {
		return Principal{}, err
	}
	if revoked {
		return Principal{}, ErrAuthentication
	}
	id, err := claims.SubjectID()
	if err != nil {
		return Principal{}, ErrAuthentication
	}
	user, err := s.dir.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrAuthentication
		}
		return Principal{}, err
	}
	return PrincipalFromUser(user), nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id int) (*User, error) {
	return s.dir.GetUser(ctx, id)
}

// DeleteUser removes the user and their role assignments. Tokens already
// issued to the user die at the next Authenticate call, which refetches the
// record.
func (s *Service) DeleteUser(ctx context.Context, id int) error {
	return s.dir.DeleteUser(ctx, id)
}

// ListUsers returns one page of users plus a flag reporting whether more
// pages exist. The name filter accepts the `*` wildcard.
func (s *Service) ListUsers(ctx context.Context, page, limit int, name string) ([]*User, bool, error) {
	return s.dir.ListUsers(ctx, page, limit, name)
}

// UpdateUser updates the record and reissues a token so the embedded claims
// reflect the new identity.
func (s *Service) UpdateUser(ctx context.Context, id int, name, email, password string) (*User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	var hash string
	if password != "" {
		var err error
		hash, err = HashPassword(password)
		if err != nil {
			return nil, "", err
		}
	}
	user, err := s.dir.UpdateUser(ctx, id, strings.TrimSpace(name), email, hash)
	if err != nil {
		return nil, "", err
	}
	token, _, err := s.codec.Issue(user, s.tokenTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
