package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/adboard-be/internal/auth"
	"github.com/isdelr/adboard-be/internal/mapper"
	"github.com/isdelr/adboard-be/internal/metrics"
	"github.com/isdelr/adboard-be/internal/models"
	"github.com/isdelr/adboard-be/internal/storage"
	"github.com/isdelr/adboard-be/internal/store"
)

// MaxAvatarSize is the largest accepted avatar upload.
const MaxAvatarSize = 10 * 1024 * 1024

// PhonePattern matches "+7 XXX XXX-XX-XX" with optional separators and parentheses.
var PhonePattern = regexp.MustCompile(`^\+7\s?\(?\d{3}\)?\s?\d{3}-?\d{2}-?\d{2}$`)

var avatarContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// Registration holds the fields of a new account.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      models.Role // Defaults to USER when empty
}

// ProfileUpdate carries optional profile fields; nil means "keep".
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, reg Registration) error
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetCurrent(ctx context.Context, actor models.User) (mapper.User, error)
	Update(ctx context.Context, actor models.User, upd ProfileUpdate) (mapper.UpdateUser, error)
	ChangePassword(ctx context.Context, actor models.User, currentPassword, newPassword string) error
	ReplaceAvatar(ctx context.Context, actor models.User, image *models.Image) error
	FetchAvatar(ctx context.Context, userID int64) ([]byte, error)
}

// UserService provides business logic for user management.
type UserService struct {
	users  UserRepository
	images ImageRepository
	hasher *auth.PasswordHasher
}

// NewUserService creates a new UserService.
func NewUserService(users UserRepository, images ImageRepository, hasher *auth.PasswordHasher) *UserService {
	return &UserService{users: users, images: images, hasher: hasher}
}

// Register creates a new account. An email that is already registered is a
// validation error and leaves the store untouched.
func (s *UserService) Register(ctx context.Context, reg Registration) error {
	exists, err := s.users.ExistsByEmail(ctx, reg.Email)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if exists {
		log.Warn().Str("email", reg.Email).Msg("Registration attempt for existing user")
		return invalid("user %s already exists", reg.Email)
	}

	role := reg.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return invalid("unknown role %q", role)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return err
	}

	user, err := s.users.Create(ctx, models.User{
		Email:        reg.Email,
		PasswordHash: hash,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Phone:        reg.Phone,
		Role:         role,
	})
	if err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, store.ErrDuplicate) {
			return invalid("user %s already exists", reg.Email)
		}
		return fmt.Errorf("creating user: %w", err)
	}

	metrics.RegistrationsTotal.Inc()
	log.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	return nil
}

// Authenticate verifies a user's credentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("unknown_user").Inc()
			return models.User{}, unauthorized("invalid credentials")
		}
		return models.User{}, err
	}
	if !s.hasher.Matches(password, user.PasswordHash) {
		metrics.LoginAttemptsTotal.WithLabelValues("bad_password").Inc()
		return models.User{}, unauthorized("invalid credentials")
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, notFound("user with id %d not found", id)
		}
		return models.User{}, err
	}
	return user, nil
}

// GetCurrent returns the profile of the authenticated user.
func (s *UserService) GetCurrent(ctx context.Context, actor models.User) (mapper.User, error) {
	user, err := s.GetUserByID(ctx, actor.ID)
	if err != nil {
		return mapper.User{}, err
	}
	return mapper.ToUser(user), nil
}

// Update overwrites the profile fields that are present in upd.
func (s *UserService) Update(ctx context.Context, actor models.User, upd ProfileUpdate) (mapper.UpdateUser, error) {
	user, err := s.GetUserByID(ctx, actor.ID)
	if err != nil {
		return mapper.UpdateUser{}, err
	}

	if upd.FirstName != nil {
		if !lengthBetween(*upd.FirstName, 3, 10) {
			return mapper.UpdateUser{}, invalid("first name must be 3 to 10 characters")
		}
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		if !lengthBetween(*upd.LastName, 3, 10) {
			return mapper.UpdateUser{}, invalid("last name must be 3 to 10 characters")
		}
		user.LastName = *upd.LastName
	}
	if upd.Phone != nil {
		if !PhonePattern.MatchString(*upd.Phone) {
			return mapper.UpdateUser{}, invalid("phone must match +7 XXX XXX-XX-XX")
		}
		user.Phone = *upd.Phone
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return mapper.UpdateUser{}, fmt.Errorf("updating profile: %w", err)
	}

	log.Info().Int64("user_id", user.ID).Msg("User profile updated")
	return mapper.ToUpdateUser(user), nil
}

// ChangePassword verifies the current password, then hashes and stores a new one.
func (s *UserService) ChangePassword(ctx context.Context, actor models.User, currentPassword, newPassword string) error {
	if !lengthBetween(currentPassword, 8, 16) {
		return invalid("current password must be 8 to 16 characters")
	}
	if !lengthBetween(newPassword, 8, 16) {
		return invalid("new password must be 8 to 16 characters")
	}

	user, err := s.GetUserByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !s.hasher.Matches(currentPassword, user.PasswordHash) {
		return forbidden("current password is incorrect")
	}
	if s.hasher.Matches(newPassword, user.PasswordHash) {
		return invalid("new password must differ from the current one")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	log.Info().Int64("user_id", user.ID).Msg("User password changed")
	return nil
}

// ReplaceAvatar stores a new avatar and removes the previous one.
func (s *UserService) ReplaceAvatar(ctx context.Context, actor models.User, image *models.Image) error {
	user, err := s.GetUserByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if image.Empty() {
		return invalid("image file is missing or empty")
	}
	if !avatarContentTypes[image.ContentType] {
		return invalid("only JPEG, JPG or PNG images are allowed")
	}
	if image.Size() > MaxAvatarSize {
		return invalid("image must not exceed 10MB")
	}

	filename, err := s.images.Save(ctx, image.Data, storage.NamespaceUsers, image.Filename)
	if err != nil {
		return fmt.Errorf("saving avatar: %w", err)
	}
	if err := s.users.UpdateImage(ctx, user.ID, filename); err != nil {
		discardImage(s.images, storage.NamespaceUsers, filename)
		return fmt.Errorf("updating avatar reference: %w", err)
	}
	discardImage(s.images, storage.NamespaceUsers, user.Image)

	log.Info().Int64("user_id", user.ID).Msg("User avatar updated")
	return nil
}

// FetchAvatar returns the avatar bytes of a user. A user without an avatar
// is reported as not found.
func (s *UserService) FetchAvatar(ctx context.Context, userID int64) ([]byte, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Image == "" {
		return nil, notFound("user %d has no avatar", userID)
	}
	data, err := s.images.Load(storage.NamespaceUsers, user.Image)
	if err != nil {
		if errors.Is(err, storage.ErrImageNotFound) {
			return nil, notFound("avatar of user %d not found", userID)
		}
		return nil, fmt.Errorf("loading avatar: %w", err)
	}
	return data, nil
}

// SeedDefaultUsers creates the demo user and administrator accounts if they
// do not exist yet.
func (s *UserService) SeedDefaultUsers(ctx context.Context) error {
	defaults := []Registration{
		{Email: "user@gmail.com", Password: "password", FirstName: "Иван", LastName: "Иванов", Phone: "+79991234567", Role: models.RoleUser},
		{Email: "admin@gmail.com", Password: "admin123", FirstName: "Администратор", LastName: "Системный", Phone: "+79998887766", Role: models.RoleAdmin},
	}
	for _, reg := range defaults {
		exists, err := s.users.ExistsByEmail(ctx, reg.Email)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := s.Register(ctx, reg); err != nil {
			return fmt.Errorf("seeding %s: %w", reg.Email, err)
		}
		log.Info().Str("email", reg.Email).Str("role", string(reg.Role)).Msg("Seeded default user")
	}
	return nil
}

func lengthBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}
