package pg

import (
	"context"
	"time"
)

// Revoke stores the token fingerprint. Expired rows are swept opportunistically
// first; correctness never depends on the sweep since Verify rejects expired
// tokens before the revocation check.
func (s *Store) Revoke(ctx context.Context, fingerprint string, expiresAt time.Time) error {
	const purge = `delete from revoked_tokens where expires_at < now()`
	s.logQuery(purge)
	if _, err := s.db.ExecContext(ctx, purge); err != nil {
		return err
	}
	const insert = `insert into revoked_tokens(fingerprint, expires_at) values($1,$2) on conflict (fingerprint) do nothing`
	s.logQuery(insert)
	_, err := s.db.ExecContext(ctx, insert, fingerprint, expiresAt)
	return err
}

func (s *Store) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	const query = `select exists(select 1 from revoked_tokens where fingerprint=$1)`
	s.logQuery(query)
	var revoked bool
	if err := s.db.QueryRowContext(ctx, query, fingerprint).Scan(&revoked); err != nil {
		return false, err
	}
	return revoked, nil
}
