package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/zentro/zentro-api/internal/auth"
	"github.com/zentro/zentro-api/internal/model"
)

const userColumns = "id,email,password_hash,first_name,last_name,role,is_active,email_verified,password_changed_at,created_at,updated_at"

// UserRepo persists user records in the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID. The password is hashed here;
// plain passwords never reach the database layer boundary.
func (r *UserRepo) Create(ctx context.Context, email, password, firstName, lastName, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name, role, is_active, email_verified) VALUES (?,?,?,?,?,1,1)",
		email, hash, firstName, lastName, role)
	if err != nil {
		// MySQL duplicate-key error code
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *UserRepo) scanRow(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		changed sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.IsActive, &u.EmailVerified, &changed, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if changed.Valid {
		t := changed.Time
		u.PasswordChangedAt = &t
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanRow(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanRow(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateProfile sets the mutable profile fields and returns the updated record.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, firstName, lastName string) (model.User, error) {
	// RowsAffected is 0 both for a missing row and for identical values,
	// so existence is confirmed by the read-back instead.
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?, last_name=?, updated_at=NOW() WHERE id=?",
		firstName, lastName, id)
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword stores a new password hash and stamps
// password_changed_at, which invalidates every access token issued before
// this moment.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, password_changed_at=NOW(), updated_at=NOW() WHERE id=?",
		passwordHash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive toggles the is_active flag.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=NOW() WHERE id=?", active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes the user row. There is no tombstone state.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns users ordered newest first, for the admin listing.
func (r *UserRepo) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u       model.User
			changed sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.Role, &u.IsActive, &u.EmailVerified, &changed, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if changed.Valid {
			t := changed.Time
			u.PasswordChangedAt = &t
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}
