package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/adboard-be/internal/models"
)

func TestCommentService_CreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.commentService.now = func() time.Time { return fixed }

	u1 := f.register(t, "u1@example.com", models.RoleUser)
	u2 := f.register(t, "u2@example.com", models.RoleUser)
	require.NoError(t, f.userService.ReplaceAvatar(ctx, u2, pngImage("me.png")))
	ad := f.createAd(t, u1, "Bike", 100)

	c, err := f.commentService.Create(ctx, ad.ID, "is it still available?", u2)
	require.NoError(t, err)
	assert.Equal(t, u2.ID, c.Author)
	assert.Equal(t, fixed.UnixMilli(), c.CreatedAt)
	assert.Equal(t, fmt.Sprintf("/users/%d/image", u2.ID), c.AuthorImage)

	_, err = f.commentService.Create(ctx, ad.ID, "yes it is, call me", u1)
	require.NoError(t, err)

	list, err := f.commentService.List(ctx, ad.ID)
	require.NoError(t, err)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, c, list.Results[0])
	assert.Empty(t, list.Results[1].AuthorImage)
}

func TestCommentService_MissingAd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.register(t, "u1@example.com", models.RoleUser)

	_, err := f.commentService.List(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.commentService.Create(ctx, 99, "nothing to see here", u1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommentService_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.register(t, "u1@example.com", models.RoleUser)
	u2 := f.register(t, "u2@example.com", models.RoleUser)
	admin := f.register(t, "admin@example.com", models.RoleAdmin)
	ad := f.createAd(t, u1, "Bike", 100)
	other := f.createAd(t, u1, "Sofa", 5000)

	c, err := f.commentService.Create(ctx, ad.ID, "is it still available?", u2)
	require.NoError(t, err)

	t.Run("other user is denied", func(t *testing.T) {
		_, err := f.commentService.Update(ctx, ad.ID, c.PK, "hijacked text", u1)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.ErrorIs(t, f.commentService.Delete(ctx, ad.ID, c.PK, u1), ErrPermissionDenied)
	})

	t.Run("comment of another ad is not found", func(t *testing.T) {
		_, err := f.commentService.Update(ctx, other.ID, c.PK, "wrong ad entirely", u2)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, f.commentService.Delete(ctx, other.ID, c.PK, u2), ErrNotFound)
	})

	t.Run("author updates", func(t *testing.T) {
		out, err := f.commentService.Update(ctx, ad.ID, c.PK, "still interested", u2)
		require.NoError(t, err)
		assert.Equal(t, "still interested", out.Text)
		assert.Equal(t, c.CreatedAt, out.CreatedAt)
	})

	t.Run("admin deletes", func(t *testing.T) {
		require.NoError(t, f.commentService.Delete(ctx, ad.ID, c.PK, admin))
		list, err := f.commentService.List(ctx, ad.ID)
		require.NoError(t, err)
		assert.Zero(t, list.Count)
	})

	t.Run("missing comment", func(t *testing.T) {
		_, err := f.commentService.Update(ctx, ad.ID, c.PK, "gone already", u2)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
