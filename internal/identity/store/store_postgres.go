package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rekam/internal/identity"
	id "rekam/pkg/domain"
	"rekam/pkg/platform/sentinel"
)

// PostgresProfileStore reads profiles from the profiles table.
type PostgresProfileStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

func (s *PostgresProfileStore) FindByID(ctx context.Context, userID id.UserID) (*identity.Profile, error) {
	query := `SELECT id, name, nik, role, updated_at FROM profiles WHERE id = $1`
	var (
		rawID uuid.UUID
		p     identity.Profile
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(&rawID, &p.Name, &p.NIK, &p.Role, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	p.UserID = id.UserID(rawID)
	return &p, nil
}

// Upsert creates or replaces a profile. Used by seeding and tests.
func (s *PostgresProfileStore) Upsert(ctx context.Context, profile *identity.Profile) error {
	query := `
		INSERT INTO profiles (id, name, nik, role, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			nik = EXCLUDED.nik,
			role = EXCLUDED.role,
			updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, query, uuid.UUID(profile.UserID), profile.Name, profile.NIK, profile.Role)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
