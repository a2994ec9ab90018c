package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/holidayhomes/bookingapi/internal/domain/user"
)

const adminUserColumns = `id::text, username, password_hash, property_id, display_name, created_at, updated_at`

func (s *Store) CreateAdminUser(ctx context.Context, u *user.AdminUser) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO admin_users (id, username, password_hash, property_id, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.PasswordHash, u.TenantSlug, u.DisplayName, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return conflictWrap(err, "create admin user %s", u.Username)
	}
	return nil
}

// GetAdminUserByUsername matches the username exactly (case-sensitive).
func (s *Store) GetAdminUserByUsername(ctx context.Context, username string) (*user.AdminUser, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+adminUserColumns+` FROM admin_users WHERE username = $1`, username)

	u, err := scanAdminUser(row)
	if err != nil {
		return nil, notFoundWrap(err, "get admin user %s", username)
	}
	return &u, nil
}

func (s *Store) ListAdminUsers(ctx context.Context) ([]user.AdminUser, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+adminUserColumns+` FROM admin_users ORDER BY property_id, username`)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	var users []user.AdminUser
	for rows.Next() {
		u, err := scanAdminUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin users: %w", err)
	}
	return orEmpty(users), nil
}

func (s *Store) UpdateAdminPassword(ctx context.Context, username, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE admin_users SET password_hash = $2, updated_at = now() WHERE username = $1`,
		username, passwordHash)
	return execExpectOne(tag, err, "update password for %s", username)
}

func scanAdminUser(row scannable) (user.AdminUser, error) {
	var u user.AdminUser
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.TenantSlug, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
