package services

import (
	"context"

	"github.com/isdelr/adboard-be/internal/models"
)

// UserRepository is the credential store used by the services.
type UserRepository interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, u models.User) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateImage(ctx context.Context, id int64, image string) error
}

// AdRepository persists ads.
type AdRepository interface {
	Create(ctx context.Context, ad models.Ad) (models.Ad, error)
	GetByID(ctx context.Context, id int64) (models.Ad, error)
	List(ctx context.Context) ([]models.Ad, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]models.Ad, error)
	UpdateFields(ctx context.Context, id int64, f models.AdFields) error
	UpdateImage(ctx context.Context, id int64, image string) error
	Delete(ctx context.Context, id int64) error
}

// CommentRepository persists comments.
type CommentRepository interface {
	Create(ctx context.Context, c models.Comment) (models.Comment, error)
	GetByID(ctx context.Context, id int64) (models.Comment, error)
	ListByAd(ctx context.Context, adID int64) ([]models.Comment, error)
	UpdateText(ctx context.Context, id int64, text string) error
	Delete(ctx context.Context, id int64) error
}

// ImageRepository stores binary image blobs by namespace.
type ImageRepository interface {
	Save(ctx context.Context, data []byte, namespace, originalName string) (string, error)
	Load(namespace, filename string) ([]byte, error)
	Delete(namespace, filename string) error
}

// EventPublisher broadcasts domain events to live subscribers.
type EventPublisher interface {
	Publish(topic, action string, payload any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, any) {}
