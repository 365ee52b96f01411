package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/01moynul/techxchange-golang/internal/models"
)

const userColumns = `
	u.id, u.email, u.first_name, u.last_name, u.password_hash, u.role,
	u.is_active, u.token_version, u.date_joined, u.last_login,
	p.user_id, p.phone_number, p.location, p.profile_picture_key, p.is_verified,
	p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
		pUserID   sql.NullInt64
		phone     sql.NullString
		location  sql.NullString
		picture   sql.NullString
		verified  sql.NullBool
		pCreated  sql.NullTime
		pUpdated  sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.TokenVersion, &u.DateJoined, &lastLogin,
		&pUserID, &phone, &location, &picture, &verified, &pCreated, &pUpdated,
	)
	if err != nil {
		return nil, err
	}
	u.LastLogin = timePtr(lastLogin)
	if pUserID.Valid {
		u.Profile = &models.UserProfile{
			UserID:            pUserID.Int64,
			PhoneNumber:       stringPtr(phone),
			Location:          stringPtr(location),
			ProfilePictureKey: stringPtr(picture),
			IsVerified:        verified.Bool,
			CreatedAt:         pCreated.Time,
			UpdatedAt:         pUpdated.Time,
		}
	}
	return &u, nil
}

// CreateUser inserts the user, its profile and (when given) its business
// profile atomically. u.ID is set on success.
func (s *Store) CreateUser(ctx context.Context, u *models.User, profile *models.UserProfile, business *models.BusinessProfile) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if u.DateJoined.IsZero() {
			u.DateJoined = time.Now()
		}
		if u.Role == "" {
			u.Role = models.RoleCustomer
		}

		res, err := tx.db.ExecContext(ctx, `
			INSERT INTO users (email, first_name, last_name, password_hash, role, is_active, date_joined)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.IsActive, u.DateJoined)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("user id: %w", err)
		}

		if profile == nil {
			profile = &models.UserProfile{}
		}
		profile.UserID = u.ID
		_, err = tx.db.ExecContext(ctx, `
			INSERT INTO user_profiles (user_id, phone_number, location, is_verified)
			VALUES (?, ?, ?, ?)`,
			u.ID, profile.PhoneNumber, profile.Location, profile.IsVerified)
		if err != nil {
			return fmt.Errorf("insert user profile: %w", err)
		}
		u.Profile = profile

		if business != nil {
			business.UserID = u.ID
			_, err = tx.db.ExecContext(ctx, `
				INSERT INTO business_profiles (user_id, business_name, business_type, dealing_with, business_location)
				VALUES (?, ?, ?, ?, ?)`,
				u.ID, business.BusinessName, business.BusinessType, business.DealingWith, business.BusinessLocation)
			if err != nil {
				return fmt.Errorf("insert business profile: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		WHERE u.id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetUserByEmail matches the email case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		WHERE LOWER(u.email) = LOWER(?)`, strings.TrimSpace(email))
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER(?))",
		strings.TrimSpace(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (s *Store) GetBusinessProfile(ctx context.Context, userID int64) (*models.BusinessProfile, error) {
	var b models.BusinessProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, business_name, business_type, dealing_with, business_location
		FROM business_profiles WHERE user_id = ?`, userID).
		Scan(&b.UserID, &b.BusinessName, &b.BusinessType, &b.DealingWith, &b.BusinessLocation)
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// ListUsers returns users newest first, flattened with profile and plan name.
func (s *Store) ListUsers(ctx context.Context, f models.UserFilter) ([]models.UserRow, error) {
	var (
		where []string
		args  []any
	)
	if f.Active != nil {
		where = append(where, "u.is_active = ?")
		args = append(args, *f.Active)
	}
	if f.Verified != nil {
		where = append(where, "COALESCE(p.is_verified, FALSE) = ?")
		args = append(args, *f.Verified)
	}
	if f.PlanID != nil {
		where = append(where, "s.plan_id = ?")
		args = append(args, *f.PlanID)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, "(u.email LIKE ? OR u.first_name LIKE ? OR u.last_name LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}

	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.role, u.is_active,
		       u.date_joined, u.last_login,
		       COALESCE(p.phone_number, ''), COALESCE(p.location, ''),
		       COALESCE(p.is_verified, FALSE), COALESCE(pt.name, '')
		FROM users u
		LEFT JOIN user_profiles p ON p.user_id = u.id
		LEFT JOIN subscriptions s ON s.user_id = u.id
		LEFT JOIN plan_types pt ON pt.id = s.plan_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY u.date_joined DESC, u.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.UserRow
	for rows.Next() {
		var (
			r         models.UserRow
			lastLogin sql.NullTime
		)
		if err := rows.Scan(
			&r.ID, &r.Email, &r.FirstName, &r.LastName, &r.Role, &r.IsActive,
			&r.DateJoined, &lastLogin,
			&r.PhoneNumber, &r.Location, &r.IsVerified, &r.PlanName,
		); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		r.LastLogin = timePtr(lastLogin)
		users = append(users, r)
	}
	return users, rows.Err()
}

// LockUser takes a row lock on the user until the surrounding transaction
// ends. It must run inside WithTx.
func (s *Store) LockUser(ctx context.Context, userID int64) error {
	if s.tx == nil {
		return fmt.Errorf("lock user %d: not in a transaction", userID)
	}
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ? FOR UPDATE", userID).Scan(&id)
	if err != nil {
		return notFound(err)
	}
	return nil
}

func (s *Store) SetPassword(ctx context.Context, userID int64, hash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, userID)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return checkAffected(res)
}

// ActivateUser marks the account active and its profile verified.
func (s *Store) ActivateUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET is_active = TRUE WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, is_verified) VALUES (?, TRUE)
		ON DUPLICATE KEY UPDATE is_verified = TRUE`, userID)
	if err != nil {
		return fmt.Errorf("verify profile: %w", err)
	}
	return nil
}

func (s *Store) BumpTokenVersion(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET token_version = token_version + 1 WHERE id = ?", userID)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	return checkAffected(res)
}

func (s *Store) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at, userID)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// SetProfilePicture stores the object key of the user's picture, creating
// the profile row if needed. A nil key clears it.
func (s *Store) SetProfilePicture(ctx context.Context, userID int64, key *string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, profile_picture_key) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE profile_picture_key = VALUES(profile_picture_key)`, userID, key)
	if err != nil {
		return fmt.Errorf("set profile picture: %w", err)
	}
	return nil
}

// SaveEscrow replaces the sealed password kept for the user.
func (s *Store) SaveEscrow(ctx context.Context, userID int64, sealed string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_escrow (user_id, sealed) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE sealed = VALUES(sealed)`, userID, sealed)
	if err != nil {
		return fmt.Errorf("save escrow: %w", err)
	}
	return nil
}

func (s *Store) GetEscrow(ctx context.Context, userID int64) (string, error) {
	var sealed string
	err := s.db.QueryRowContext(ctx, "SELECT sealed FROM password_escrow WHERE user_id = ?", userID).Scan(&sealed)
	if err != nil {
		return "", notFound(err)
	}
	return sealed, nil
}
