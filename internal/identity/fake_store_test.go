package identity

import (
	"context"
	"errors"
	"time"

	"github.com/01moynul/techxchange-golang/internal/email"
	"github.com/01moynul/techxchange-golang/internal/models"
	"github.com/01moynul/techxchange-golang/internal/store"
)

type fakeStore struct {
	users    map[int64]*models.User
	business map[int64]*models.BusinessProfile
	escrow   map[int64]string
	nextID   int64
	failSet  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int64]*models.User{},
		business: map[int64]*models.BusinessProfile{},
		escrow:   map[int64]string{},
		nextID:   1,
	}
}

// tx snapshots the store and restores it when fn fails.
func (f *fakeStore) tx(ctx context.Context, fn func(Store) error) error {
	users := map[int64]models.User{}
	for id, u := range f.users {
		users[id] = *u
	}
	escrow := map[int64]string{}
	for id, v := range f.escrow {
		escrow[id] = v
	}
	if err := fn(f); err != nil {
		f.users = map[int64]*models.User{}
		for id, u := range users {
			u := u
			f.users[id] = &u
		}
		f.escrow = escrow
		return err
	}
	return nil
}

func (f *fakeStore) add(u models.User) *models.User {
	if u.ID == 0 {
		u.ID = f.nextID
		f.nextID++
	}
	f.users[u.ID] = &u
	return &u
}

func (f *fakeStore) EmailExists(_ context.Context, address string) (bool, error) {
	_, err := f.GetUserByEmail(context.Background(), address)
	return err == nil, nil
}

func (f *fakeStore) CreateUser(_ context.Context, u *models.User, profile *models.UserProfile, business *models.BusinessProfile) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	u.ID = f.nextID
	f.nextID++
	stored := *u
	if profile != nil {
		p := *profile
		p.UserID = u.ID
		stored.Profile = &p
	}
	f.users[u.ID] = &stored
	if business != nil {
		b := *business
		b.UserID = u.ID
		f.business[u.ID] = &b
	}
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, address string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == address {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetBusinessProfile(_ context.Context, userID int64) (*models.BusinessProfile, error) {
	b, ok := f.business[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) ListUsers(_ context.Context, filter models.UserFilter) ([]models.UserRow, error) {
	var rows []models.UserRow
	for _, u := range f.users {
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		rows = append(rows, models.UserRow{User: *u})
	}
	return rows, nil
}

func (f *fakeStore) SetPassword(_ context.Context, userID int64, hash string) error {
	if f.failSet != nil {
		return f.failSet
	}
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeStore) ActivateUser(_ context.Context, userID int64) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = true
	return nil
}

func (f *fakeStore) BumpTokenVersion(_ context.Context, userID int64) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.TokenVersion++
	return nil
}

func (f *fakeStore) TouchLastLogin(_ context.Context, userID int64, at time.Time) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (f *fakeStore) SaveEscrow(_ context.Context, userID int64, sealed string) error {
	f.escrow[userID] = sealed
	return nil
}

func (f *fakeStore) GetEscrow(_ context.Context, userID int64) (string, error) {
	v, ok := f.escrow[userID]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

type recordingMailer struct {
	sent []email.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg email.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

var errSMTPDown = errors.New("smtp down")
