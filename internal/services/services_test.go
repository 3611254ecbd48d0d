package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/isdelr/adboard-be/internal/auth"
	"github.com/isdelr/adboard-be/internal/database"
	"github.com/isdelr/adboard-be/internal/models"
	"github.com/isdelr/adboard-be/internal/storage"
	"github.com/isdelr/adboard-be/internal/store"
)

type fixture struct {
	users    *store.UserStore
	ads      *store.AdStore
	comments *store.CommentStore
	images   *storage.ImageStore

	userService    *UserService
	adService      *AdService
	commentService *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	db, err := database.New(filepath.Join(dir, "services-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	images := storage.NewImageStore(filepath.Join(dir, "uploads"))
	require.NoError(t, images.Init())

	f := &fixture{
		users:    store.NewUserStore(db),
		ads:      store.NewAdStore(db),
		comments: store.NewCommentStore(db),
		images:   images,
	}
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	f.userService = NewUserService(f.users, images, hasher)
	f.adService = NewAdService(f.ads, f.users, images)
	f.commentService = NewCommentService(f.comments, f.ads, f.users)
	return f
}

// register creates an account and returns the stored user.
func (f *fixture) register(t *testing.T, email string, role models.Role) models.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.userService.Register(ctx, Registration{
		Email:     email,
		Password:  "password1",
		FirstName: "Ivan",
		LastName:  "Ivanov",
		Phone:     "+79991234567",
		Role:      role,
	}))
	u, err := f.users.GetByEmail(ctx, email)
	require.NoError(t, err)
	return u
}

func (f *fixture) createAd(t *testing.T, author models.User, title string, price int64) models.Ad {
	t.Helper()
	out, err := f.adService.Create(context.Background(), models.AdFields{
		Title:       title,
		Price:       price,
		Description: "a perfectly fine thing",
	}, pngImage("ad.png"), author)
	require.NoError(t, err)
	ad, err := f.ads.GetByID(context.Background(), out.PK)
	require.NoError(t, err)
	return ad
}

func pngImage(name string) *models.Image {
	return &models.Image{
		Filename:    name,
		ContentType: "image/png",
		Data:        []byte("\x89PNG\r\n\x1a\n" + name),
	}
}

type publishedEvent struct {
	topic, action string
	payload       any
}

type recordingPublisher struct {
	events []publishedEvent
}

func (p *recordingPublisher) Publish(topic, action string, payload any) {
	p.events = append(p.events, publishedEvent{topic, action, payload})
}

func (p *recordingPublisher) actions() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.topic+" "+e.action)
	}
	return out
}
