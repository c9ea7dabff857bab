package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postpilothq/postpilot/internal/security/secretbox"
)

// PgStore persiste credenciales en Postgres. Los tokens se cifran en reposo
// con el Box inyectado.
type PgStore struct {
	pool *pgxpool.Pool
	box  *secretbox.Box
}

func NewPgStore(pool *pgxpool.Pool, box *secretbox.Box) *PgStore {
	return &PgStore{pool: pool, box: box}
}

const credentialColumns = `id, owner_scope, owner_id, provider, access_token, refresh_token,
	expires_at, provider_account_id, identity_unverified, is_active, connected_at`

// Save deactivates any prior active credential for the key and inserts the
// new one as active, in a single statement so no window exists where two
// records are active or none is.
func (s *PgStore) Save(ctx context.Context, rec Record) (Record, error) {
	access, err := s.box.Encrypt(rec.AccessToken)
	if err != nil {
		return Record{}, fmt.Errorf("credentials: encrypt access token: %w", err)
	}
	refresh := ""
	if rec.RefreshToken != "" {
		if refresh, err = s.box.Encrypt(rec.RefreshToken); err != nil {
			return Record{}, fmt.Errorf("credentials: encrypt refresh token: %w", err)
		}
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	const q = `
		WITH deactivated AS (
			UPDATE social_credentials
			SET is_active = FALSE
			WHERE owner_scope = $2 AND owner_id = $3 AND provider = $4 AND is_active = TRUE
		)
		INSERT INTO social_credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, now())
		RETURNING ` + credentialColumns

	row := s.pool.QueryRow(ctx, q,
		rec.ID, rec.OwnerScope, rec.OwnerID, rec.Provider,
		access, refresh, rec.ExpiresAt, rec.ProviderAccountID, rec.IdentityUnverified,
	)
	return s.scan(row)
}

func (s *PgStore) FindActive(ctx context.Context, scope OwnerScope, ownerID, provider string) (Record, error) {
	const q = `
		SELECT ` + credentialColumns + `
		FROM social_credentials
		WHERE owner_scope = $1 AND owner_id = $2 AND provider = $3 AND is_active = TRUE`

	rec, err := s.scan(s.pool.QueryRow(ctx, q, scope, ownerID, provider))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNoActiveCredential
	}
	return rec, err
}

func (s *PgStore) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) (Record, error) {
	access, err := s.box.Encrypt(accessToken)
	if err != nil {
		return Record{}, fmt.Errorf("credentials: encrypt access token: %w", err)
	}
	refresh := ""
	if refreshToken != "" {
		if refresh, err = s.box.Encrypt(refreshToken); err != nil {
			return Record{}, fmt.Errorf("credentials: encrypt refresh token: %w", err)
		}
	}

	const q = `
		UPDATE social_credentials
		SET access_token = $2, refresh_token = $3, expires_at = $4
		WHERE id = $1
		RETURNING ` + credentialColumns

	rec, err := s.scan(s.pool.QueryRow(ctx, q, id, access, refresh, expiresAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNoActiveCredential
	}
	return rec, err
}

func (s *PgStore) Deactivate(ctx context.Context, scope OwnerScope, ownerID, provider string) error {
	const q = `
		UPDATE social_credentials
		SET is_active = FALSE
		WHERE owner_scope = $1 AND owner_id = $2 AND provider = $3 AND is_active = TRUE`

	tag, err := s.pool.Exec(ctx, q, scope, ownerID, provider)
	if err != nil {
		return fmt.Errorf("credentials: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoActiveCredential
	}
	return nil
}

func (s *PgStore) scan(row pgx.Row) (Record, error) {
	var rec Record
	var access, refresh string
	err := row.Scan(
		&rec.ID, &rec.OwnerScope, &rec.OwnerID, &rec.Provider,
		&access, &refresh, &rec.ExpiresAt, &rec.ProviderAccountID,
		&rec.IdentityUnverified, &rec.IsActive, &rec.ConnectedAt,
	)
	if err != nil {
		return Record{}, err
	}

	if rec.AccessToken, err = s.box.Decrypt(access); err != nil {
		return Record{}, fmt.Errorf("credentials: decrypt access token: %w", err)
	}
	if refresh != "" {
		if rec.RefreshToken, err = s.box.Decrypt(refresh); err != nil {
			return Record{}, fmt.Errorf("credentials: decrypt refresh token: %w", err)
		}
	}
	return rec, nil
}
