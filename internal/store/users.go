package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/adboard-be/internal/models"
)

const userColumns = "id, email, password_hash, first_name, last_name, phone, role, image"

// UserStore is the credential store.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner rowScanner) (models.User, error) {
	var u models.User
	var role string
	var image sql.NullString
	err := scanner.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &role, &image)
	if err != nil {
		return models.User{}, err
	}
	u.Role = models.Role(role)
	u.Image = image.String
	return u, nil
}

// Create inserts a user and returns it with its assigned ID.
func (s *UserStore) Create(ctx context.Context, u models.User) (models.User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, last_name, phone, role, image) VALUES (?, ?, ?, ?, ?, ?, ?)",
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, string(u.Role), nullString(u.Image))
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
		}
		return models.User{}, fmt.Errorf("inserting user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("reading user id: %w", err)
	}
	u.ID = id
	return u, nil
}

// GetByID retrieves a single user by their ID.
func (s *UserStore) GetByID(ctx context.Context, id int64) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with id %d: %w", id, ErrNotFound)
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail retrieves a single user by their email, including the password hash.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
		}
		return models.User{}, err
	}
	return u, nil
}

// ExistsByEmail reports whether a user with the given email is registered.
func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", email).Scan(&exists)
	return exists, err
}

// UpdateProfile overwrites the profile fields of a user.
func (s *UserStore) UpdateProfile(ctx context.Context, u models.User) error {
	return s.exec(ctx, u.ID,
		"UPDATE users SET first_name = ?, last_name = ?, phone = ? WHERE id = ?",
		u.FirstName, u.LastName, u.Phone, u.ID)
}

// UpdatePasswordHash replaces the stored password hash of a user.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.exec(ctx, id, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id)
}

// UpdateImage sets the avatar filename of a user.
func (s *UserStore) UpdateImage(ctx context.Context, id int64, image string) error {
	return s.exec(ctx, id, "UPDATE users SET image = ? WHERE id = ?", nullString(image), id)
}

// ImageRefs returns the set of avatar filenames referenced by users.
func (s *UserStore) ImageRefs(ctx context.Context) (map[string]bool, error) {
	return imageRefs(ctx, s.db, "users")
}

func (s *UserStore) exec(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user with id %d: %w", id, ErrNotFound)
	}
	return nil
}
