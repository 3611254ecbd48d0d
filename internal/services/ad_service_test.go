package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/adboard-be/internal/models"
	"github.com/isdelr/adboard-be/internal/storage"
)

func TestAdService_CreateBike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.register(t, "u1@example.com", models.RoleUser)

	out, err := f.adService.Create(ctx, models.AdFields{
		Title:       "Bike",
		Price:       100,
		Description: "good bike",
	}, pngImage("bike.png"), u1)
	require.NoError(t, err)

	assert.Equal(t, u1.ID, out.Author)
	assert.Equal(t, "Bike", out.Title)
	assert.Equal(t, int64(100), out.Price)
	assert.Equal(t, fmt.Sprintf("/ads/%d/image", out.PK), out.Image)

	all, err := f.adService.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, all.Count)
	assert.Equal(t, out, all.Results[0])

	ext, err := f.adService.Get(ctx, out.PK)
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", ext.Email)
	assert.Equal(t, "Ivan", ext.AuthorFirstName)
	assert.Equal(t, "good bike", ext.Description)

	data, err := f.adService.FetchImage(ctx, out.PK)
	require.NoError(t, err)
	assert.Equal(t, pngImage("bike.png").Data, data)
}

func TestAdService_CreateRequiresImage(t *testing.T) {
	f := newFixture(t)
	u1 := f.register(t, "u1@example.com", models.RoleUser)

	_, err := f.adService.Create(context.Background(), models.AdFields{Title: "Bike"}, nil, u1)
	require.ErrorIs(t, err, ErrValidation)

	all, err := f.adService.ListAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, all.Count)
	assert.NotNil(t, all.Results)
}

func TestAdService_CreateUnknownActor(t *testing.T) {
	f := newFixture(t)
	_, err := f.adService.Create(context.Background(), models.AdFields{Title: "Bike"}, pngImage("a.png"), models.User{ID: 42})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdService_NonAuthorCannotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.register(t, "u1@example.com", models.RoleUser)
	u2 := f.register(t, "u2@example.com", models.RoleUser)
	ad := f.createAd(t, u1, "Bike", 100)

	err := f.adService.Delete(ctx, ad.ID, u2)
	require.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.adService.Update(ctx, ad.ID, models.AdFields{Title: "Mine"}, u2)
	require.ErrorIs(t, err, ErrPermissionDenied)

	err = f.adService.ReplaceImage(ctx, ad.ID, pngImage("other.png"), u2)
	require.ErrorIs(t, err, ErrPermissionDenied)

	stored, err := f.ads.GetByID(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, ad, stored)
}

func TestAdService_AdminCanMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.register(t, "u1@example.com", models.RoleUser)
	admin := f.register(t, "admin@example.com", models.RoleAdmin)
	ad := f.createAd(t, u1, "Bike", 100)

	out, err := f.adService.Update(ctx, ad.ID, models.AdFields{Title: "Bicycle", Price: 90, Description: "still a good bike"}, admin)
	require.NoError(t, err)
	assert.Equal(t, "Bicycle", out.Title)
	assert.Equal(t, int64(90), out.Price)
	assert.Equal(t, u1.ID, out.Author)

	require.NoError(t, f.adService.Delete(ctx, ad.ID, admin))
	_, err = f.adService.Get(ctx, ad.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdService_DeleteRemovesCommentsAndImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.register(t, "u1@example.com", models.RoleUser)
	u2 := f.register(t, "u2@example.com", models.RoleUser)
	ad := f.createAd(t, u1, "Bike", 100)

	_, err := f.commentService.Create(ctx, ad.ID, "is it still available?", u2)
	require.NoError(t, err)
	_, err = f.commentService.Create(ctx, ad.ID, "yes, come and see it", u1)
	require.NoError(t, err)

	require.NoError(t, f.adService.Delete(ctx, ad.ID, u1))

	remaining, err := f.comments.ListByAd(ctx, ad.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = f.images.Load(storage.NamespaceAds, ad.Image)
	assert.ErrorIs(t, err, storage.ErrImageNotFound)

	err = f.adService.Delete(ctx, ad.ID, u1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdService_ListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.register(t, "u1@example.com", models.RoleUser)
	u2 := f.register(t, "u2@example.com", models.RoleUser)
	f.createAd(t, u1, "Bike", 100)
	f.createAd(t, u2, "Sofa", 5000)
	f.createAd(t, u1, "Lamp", 20)

	mine, err := f.adService.ListMine(ctx, u1)
	require.NoError(t, err)
	require.Equal(t, 2, mine.Count)
	assert.Equal(t, "Bike", mine.Results[0].Title)
	assert.Equal(t, "Lamp", mine.Results[1].Title)

	all, err := f.adService.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Count)
}

func TestAdService_ReplaceImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.register(t, "u1@example.com", models.RoleUser)
	ad := f.createAd(t, u1, "Bike", 100)

	require.ErrorIs(t, f.adService.ReplaceImage(ctx, ad.ID, &models.Image{}, u1), ErrValidation)

	replacement := pngImage("new.png")
	require.NoError(t, f.adService.ReplaceImage(ctx, ad.ID, replacement, u1))

	data, err := f.adService.FetchImage(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, replacement.Data, data)

	_, err = f.images.Load(storage.NamespaceAds, ad.Image)
	assert.ErrorIs(t, err, storage.ErrImageNotFound)
}

func TestAdService_FetchImageMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data, err := f.adService.FetchImage(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, data)

	u1 := f.register(t, "u1@example.com", models.RoleUser)
	ad := f.createAd(t, u1, "Bike", 100)
	require.NoError(t, f.images.Delete(storage.NamespaceAds, ad.Image))

	data, err = f.adService.FetchImage(ctx, ad.ID)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestAdService_PublishesEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	events := &recordingPublisher{}
	f.adService.SetEvents(events)
	f.commentService.SetEvents(events)

	u1 := f.register(t, "u1@example.com", models.RoleUser)
	ad := f.createAd(t, u1, "Bike", 100)
	_, err := f.adService.Update(ctx, ad.ID, models.AdFields{Title: "Bicycle", Price: 90, Description: "good bike"}, u1)
	require.NoError(t, err)
	c, err := f.commentService.Create(ctx, ad.ID, "is it still available?", u1)
	require.NoError(t, err)
	require.NoError(t, f.commentService.Delete(ctx, ad.ID, c.PK, u1))
	require.NoError(t, f.adService.Delete(ctx, ad.ID, u1))

	adTopic := fmt.Sprintf("ads/%d", ad.ID)
	assert.Equal(t, []string{
		"ads ad.created",
		"ads ad.updated",
		adTopic + " comment.created",
		adTopic + " comment.deleted",
		"ads ad.deleted",
	}, events.actions())

	// Denied mutations publish nothing.
	u2 := f.register(t, "u2@example.com", models.RoleUser)
	other := f.createAd(t, u1, "Lamp", 20)
	n := len(events.events)
	require.ErrorIs(t, f.adService.Delete(ctx, other.ID, u2), ErrPermissionDenied)
	assert.Len(t, events.events, n)
}
