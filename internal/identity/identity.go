// Package identity handles registration, the admin activation gate, login
// and password management.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/01moynul/techxchange-golang/internal/auth"
	"github.com/01moynul/techxchange-golang/internal/email"
	"github.com/01moynul/techxchange-golang/internal/escrow"
	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/store"
)

var (
	ErrEmailTaken          = errors.New("a user with this email already exists")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInactive            = errors.New("account is awaiting admin approval")
	ErrUnknownEmail        = errors.New("no account found with this email")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrWeakPassword        = errors.New("password must be at least 8 characters")
	ErrInvalidResetLink    = errors.New("the reset link is invalid or has expired")
	ErrWrongPassword       = errors.New("current password is incorrect")
	ErrEscrowUnavailable   = errors.New("password is not available")
	ErrAdminAccountMissing = errors.New("admin account not found")
)

// MinPasswordLength applies to passwords chosen by users.
const MinPasswordLength = 8

// Store is what the identity service reads and writes.
type Store interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, u *models.User, profile *models.UserProfile, business *models.BusinessProfile) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetBusinessProfile(ctx context.Context, userID int64) (*models.BusinessProfile, error)
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.UserRow, error)
	SetPassword(ctx context.Context, userID int64, hash string) error
	ActivateUser(ctx context.Context, userID int64) error
	BumpTokenVersion(ctx context.Context, userID int64) error
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
	SaveEscrow(ctx context.Context, userID int64, sealed string) error
	GetEscrow(ctx context.Context, userID int64) (string, error)
}

// TxFunc runs fn with a Store bound to a single transaction.
type TxFunc func(ctx context.Context, fn func(Store) error) error

// SQLTx adapts the MySQL store to TxFunc.
func SQLTx(st *store.Store) TxFunc {
	return func(ctx context.Context, fn func(Store) error) error {
		return st.WithTx(ctx, func(tx *store.Store) error { return fn(tx) })
	}
}

type Config struct {
	AdminEmail string
	// BaseURL prefixes the login and password reset links sent by email.
	BaseURL string
}

type Service struct {
	store    Store
	tx       TxFunc
	tokens   *auth.TokenManager
	resets   *auth.ResetTokens
	vault    *escrow.Vault
	mailer   email.Mailer
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
	password func() (string, error)
}

func New(st Store, tx TxFunc, tokens *auth.TokenManager, resets *auth.ResetTokens, vault *escrow.Vault,
	mailer email.Mailer, logger *slog.Logger, cfg Config) *Service {
	if tx == nil {
		tx = func(ctx context.Context, fn func(Store) error) error { return fn(st) }
	}
	return &Service{
		store:    st,
		tx:       tx,
		tokens:   tokens,
		resets:   resets,
		vault:    vault,
		mailer:   mailer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		password: GeneratePassword,
	}
}

const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// GeneratePassword returns a random 12 character password.
func GeneratePassword() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < 12; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// canonicalEmail is the form addresses are stored and looked up in.
func canonicalEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func normalizeEmail(address string) (string, error) {
	address = canonicalEmail(address)
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return "", ErrInvalidEmail
	}
	return address, nil
}

// RegisterInput is what a prospective customer submits.
type RegisterInput struct {
	Name             string
	Email            string
	PhoneNumber      string
	Location         string
	BusinessName     string
	BusinessType     string
	DealingWith      string
	BusinessLocation string
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Register creates an inactive account without a usable password and
// notifies the admin. The admin notice is best-effort.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	address, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.EmailExists(ctx, address)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	first, last := models.SplitName(in.Name)
	u := &models.User{
		Email:      address,
		FirstName:  first,
		LastName:   last,
		Role:       models.RoleCustomer,
		IsActive:   false,
		DateJoined: s.now(),
	}
	profile := &models.UserProfile{
		PhoneNumber: optional(in.PhoneNumber),
		Location:    optional(in.Location),
	}
	var business *models.BusinessProfile
	if strings.TrimSpace(in.BusinessName) != "" {
		business = &models.BusinessProfile{
			BusinessName:     strings.TrimSpace(in.BusinessName),
			BusinessType:     strings.TrimSpace(in.BusinessType),
			DealingWith:      strings.TrimSpace(in.DealingWith),
			BusinessLocation: strings.TrimSpace(in.BusinessLocation),
		}
	}

	if err := s.store.CreateUser(ctx, u, profile, business); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", "user_id", u.ID, "email", u.Email)

	if s.cfg.AdminEmail != "" {
		notice := email.AdminRegistrationNotice(s.cfg.AdminEmail, email.Registration{
			Name:         u.FullName(),
			Email:        u.Email,
			Phone:        strings.TrimSpace(in.PhoneNumber),
			Location:     strings.TrimSpace(in.Location),
			BusinessName: strings.TrimSpace(in.BusinessName),
		})
		if err := s.mailer.Send(ctx, notice); err != nil {
			s.logger.Error("failed to notify admin of registration", "user_id", u.ID, "error", err)
		}
	}
	return u, nil
}

// Login verifies the credentials and issues an access token.
func (s *Service) Login(ctx context.Context, address, password string) (string, *models.User, error) {
	u, err := s.store.GetUserByEmail(ctx, canonicalEmail(address))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, ErrInactive
	}

	pw := models.Password{Hash: u.PasswordHash}
	ok, err := pw.Matches(password)
	if err != nil {
		return "", nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(u.ID, u.TokenVersion)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	if err := s.store.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("failed to record last login", "user_id", u.ID, "error", err)
	} else {
		u.LastLogin = &now
	}
	return token, u, nil
}

// Logout revokes every token issued to the user so far.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.store.BumpTokenVersion(ctx, userID)
}

// Authenticate resolves a bearer token to an active user whose token
// version still matches.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	u, err := s.store.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive || u.TokenVersion != claims.TokenVersion {
		return nil, auth.ErrInvalidToken
	}
	return u, nil
}

// setPassword hashes and stores pw, keeping the escrowed copy in step.
func (s *Service) setPassword(ctx context.Context, st Store, userID int64, pw string) error {
	var p models.Password
	if err := p.Set(pw); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := st.SetPassword(ctx, userID, p.Hash); err != nil {
		return err
	}

	sealed, err := s.vault.Seal(pw)
	if err != nil {
		return fmt.Errorf("escrow password: %w", err)
	}
	if sealed != "" {
		if err := st.SaveEscrow(ctx, userID, sealed); err != nil {
			return err
		}
	}
	return nil
}

// ActivationResult reports which users a bulk activation touched.
type ActivationResult struct {
	Activated []int64 `json:"activated"`
	Skipped   []int64 `json:"skipped"`
}

// Activate enables inactive accounts, giving each a fresh random password
// that is emailed to the user. Unknown and already active users are skipped.
func (s *Service) Activate(ctx context.Context, ids []int64) (*ActivationResult, error) {
	res := &ActivationResult{Activated: []int64{}, Skipped: []int64{}}

	for _, id := range ids {
		u, err := s.store.GetUserByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if err != nil {
			return res, err
		}
		if u.IsActive {
			res.Skipped = append(res.Skipped, id)
			continue
		}

		pw, err := s.password()
		if err != nil {
			return res, err
		}
		err = s.tx(ctx, func(st Store) error {
			if err := s.setPassword(ctx, st, u.ID, pw); err != nil {
				return err
			}
			return st.ActivateUser(ctx, u.ID)
		})
		if err != nil {
			return res, fmt.Errorf("activate user %d: %w", u.ID, err)
		}
		res.Activated = append(res.Activated, u.ID)
		s.logger.Info("user activated", "user_id", u.ID)

		msg := email.AccountApproved(u.Email, u.FirstName, pw, strings.TrimRight(s.cfg.BaseURL, "/")+"/login")
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Error("failed to send account approval email", "user_id", u.ID, "error", err)
		}
	}
	return res, nil
}

// ForgotPassword emails a single-use reset link. Mail failures are returned.
func (s *Service) ForgotPassword(ctx context.Context, address string) error {
	u, err := s.store.GetUserByEmail(ctx, canonicalEmail(address))
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownEmail
	}
	if err != nil {
		return err
	}

	token, err := s.resets.Generate(u.ID, auth.Fingerprint(u.PasswordHash, u.LastLogin))
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	link := fmt.Sprintf("%s/reset-password/%s/%s", strings.TrimRight(s.cfg.BaseURL, "/"), auth.EncodeUID(u.ID), token)

	if err := s.mailer.Send(ctx, email.PasswordReset(u.Email, link)); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func checkNewPassword(pw, confirm string) error {
	if pw != confirm {
		return ErrPasswordMismatch
	}
	if len(pw) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// ResetPassword sets a new password from a reset link. Using the link
// changes the fingerprint it was bound to, so it cannot be reused.
func (s *Service) ResetPassword(ctx context.Context, uidb64, token, pw, confirm string) error {
	if err := checkNewPassword(pw, confirm); err != nil {
		return err
	}
	userID, err := auth.DecodeUID(uidb64)
	if err != nil {
		return ErrInvalidResetLink
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetLink
	}
	if err != nil {
		return err
	}
	if err := s.resets.Validate(token, u.ID, auth.Fingerprint(u.PasswordHash, u.LastLogin)); err != nil {
		return ErrInvalidResetLink
	}

	return s.tx(ctx, func(st Store) error {
		if err := s.setPassword(ctx, st, u.ID, pw); err != nil {
			return err
		}
		return st.BumpTokenVersion(ctx, u.ID)
	})
}

// ChangePassword replaces the password of a logged-in user.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, pw, confirm string) error {
	if err := checkNewPassword(pw, confirm); err != nil {
		return err
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	old := models.Password{Hash: u.PasswordHash}
	ok, err := old.Matches(current)
	if err != nil {
		return fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return ErrWrongPassword
	}
	return s.tx(ctx, func(st Store) error {
		return s.setPassword(ctx, st, u.ID, pw)
	})
}

// EscrowedPassword returns the plaintext password kept for support staff.
// Decryption failures are logged and reported as ErrEscrowUnavailable.
func (s *Service) EscrowedPassword(ctx context.Context, userID int64) (string, error) {
	if s.vault.Disabled() {
		return "", ErrEscrowUnavailable
	}
	sealed, err := s.store.GetEscrow(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrEscrowUnavailable
	}
	if err != nil {
		return "", err
	}
	pw, err := s.vault.Open(sealed)
	if err != nil {
		s.logger.Error("failed to open escrowed password", "user_id", userID, "error", err)
		return "", ErrEscrowUnavailable
	}
	return pw, nil
}

// Profile returns the user with their business profile, if any.
func (s *Service) Profile(ctx context.Context, userID int64) (*models.User, *models.BusinessProfile, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.store.GetBusinessProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return u, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return u, b, nil
}

func (s *Service) ListUsers(ctx context.Context, f models.UserFilter) ([]models.UserRow, error) {
	return s.store.ListUsers(ctx, f)
}

// SeedAdmin makes sure an active admin account exists for address.
func (s *Service) SeedAdmin(ctx context.Context, address, password string) error {
	address, err := normalizeEmail(address)
	if err != nil {
		return err
	}
	exists, err := s.store.EmailExists(ctx, address)
	if err != nil || exists {
		return err
	}

	var p models.Password
	if err := p.Set(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Email:        address,
		FirstName:    "Admin",
		PasswordHash: p.Hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		DateJoined:   s.now(),
	}
	if err := s.store.CreateUser(ctx, u, &models.UserProfile{IsVerified: true}, nil); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.logger.Info("admin account created", "email", address)
	return nil
}
