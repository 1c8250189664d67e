package store

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken records a token id as revoked until expiresAt. Revoking twice is a no-op.
func (s *Store) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	query := `INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, s.q(query), jti, expiresAt.UTC()); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether jti was revoked and the revocation has not expired.
func (s *Store) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = ? AND expires_at > ?)`), jti, now()).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return revoked, nil
}

// PurgeExpiredRevocations deletes revocations whose token has expired anyway.
func (s *Store) PurgeExpiredRevocations(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM revoked_tokens WHERE expires_at <= ?`), now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge revocations: %w", err)
	}
	return res.RowsAffected()
}
