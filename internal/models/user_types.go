package models

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is the model for the 'users' table.
type User struct {
	ID           int64      `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	FirstName    string     `json:"firstName" db:"first_name"`
	LastName     string     `json:"lastName" db:"last_name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	TokenVersion int        `json:"-" db:"token_version"`
	DateJoined   time.Time  `json:"dateJoined" db:"date_joined"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" db:"last_login"`

	// Profile is loaded together with the user. Nil means no profile row.
	Profile *UserProfile `json:"profile,omitempty" db:"-"`
}

// FullName joins first and last name the way they were entered at registration.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SplitName splits a full name at the first space into first and last name.
func SplitName(name string) (first, last string) {
	parts := strings.SplitN(strings.TrimSpace(name), " ", 2)
	first = parts[0]
	if len(parts) > 1 {
		last = strings.TrimSpace(parts[1])
	}
	return first, last
}

// UserProfile is the model for the 'user_profiles' table (1:1 with users).
type UserProfile struct {
	UserID            int64     `json:"userId" db:"user_id"`
	PhoneNumber       *string   `json:"phoneNumber,omitempty" db:"phone_number"`
	Location          *string   `json:"location,omitempty" db:"location"`
	ProfilePictureKey *string   `json:"-" db:"profile_picture_key"`
	IsVerified        bool      `json:"isVerified" db:"is_verified"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`

	ProfilePictureURL string `json:"profilePictureUrl,omitempty" db:"-"`
}

// BusinessProfile is the model for the 'business_profiles' table.
type BusinessProfile struct {
	UserID           int64  `json:"userId" db:"user_id"`
	BusinessName     string `json:"businessName" db:"business_name"`
	BusinessType     string `json:"businessType" db:"business_type"`
	DealingWith      string `json:"dealingWith" db:"dealing_with"`
	BusinessLocation string `json:"businessLocation" db:"business_location"`
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Active   *bool
	Verified *bool
	PlanID   *int64
	Search   string
}

// UserRow is a flattened user used by the admin listing and the export.
type UserRow struct {
	User
	PhoneNumber string `json:"phoneNumber"`
	Location    string `json:"location"`
	IsVerified  bool   `json:"isVerified"`
	PlanName    string `json:"planName"`
}

// Password Helper (Standard)
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

// Matches reports whether plaintextPassword matches the stored hash. An empty
// hash (an account that never received a password) never matches.
func (p *Password) Matches(plaintextPassword string) (bool, error) {
	if p.Hash == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
