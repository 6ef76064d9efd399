package auth

import (
	"context"
	"time"
)

// RevocationStore tracks tokens invalidated before their natural expiry.
// Implementations must be safe for concurrent use; conflicting revocations
// of the same fingerprint are serialized by the store and are not errors.
type RevocationStore interface {
	// Revoke records a token fingerprint as revoked. Idempotent. The expiry
	// lets the store drop the record once the token would no longer verify
	// anyway; keeping it longer is harmless.
	Revoke(ctx context.Context, fingerprint string, expiresAt time.Time) error

	// IsRevoked reports whether the fingerprint has been revoked.
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)
}

// UserDirectory is the external user-store collaborator consumed by the
// authenticator and the user handlers.
type UserDirectory interface {
	CreateUser(ctx context.Context, u *User) (*User, error)
	GetUser(ctx context.Context, id int) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, id int, name, email, passwordHash string) (*User, error)
	DeleteUser(ctx context.Context, id int) error
	ListUsers(ctx context.Context, page, limit int, name string) ([]*User, bool, error)
}
