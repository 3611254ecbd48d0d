package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/isdelr/adboard-be/internal/models"
)

func TestCanMutate(t *testing.T) {
	author := models.User{ID: 1, Role: models.RoleUser}
	stranger := models.User{ID: 2, Role: models.RoleUser}
	admin := models.User{ID: 3, Role: models.RoleAdmin}

	assert.True(t, CanMutate(author, 1))
	assert.False(t, CanMutate(stranger, 1))
	assert.True(t, CanMutate(admin, 1))
	assert.True(t, CanMutate(admin, 3))
	assert.False(t, CanMutate(models.User{ID: 0, Role: ""}, 1))
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.True(t, h.Matches("password123", hash))
	assert.False(t, h.Matches("password124", hash))
	assert.False(t, h.Matches("password123", "not-a-bcrypt-hash"))
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	token, err := issuer.Generate(models.User{ID: 42, Email: "u@example.com"})
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "u@example.com", claims.Email)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	token, err := issuer.Generate(models.User{ID: 1})
	require.NoError(t, err)

	_, err = NewTokenIssuer("other-secret").Validate(token)
	assert.Error(t, err)

	expired := NewTokenIssuer("test-secret")
	expired.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, err := expired.Generate(models.User{ID: 1})
	require.NoError(t, err)
	_, err = issuer.Validate(old)
	assert.Error(t, err)

	_, err = issuer.Validate("garbage")
	assert.Error(t, err)
}

type fakeAuthenticator struct {
	users map[string]models.User
	pass  map[string]string
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, email, password string) (models.User, error) {
	u, ok := f.users[email]
	if !ok || f.pass[email] != password {
		return models.User{}, errors.New("bad credentials")
	}
	return u, nil
}

func (f *fakeAuthenticator) GetUserByID(_ context.Context, id int64) (models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, errors.New("not found")
}

func TestMiddleware(t *testing.T) {
	user := models.User{ID: 7, Email: "u@example.com", Role: models.RoleUser}
	authn := &fakeAuthenticator{
		users: map[string]models.User{user.Email: user},
		pass:  map[string]string{user.Email: "password1"},
	}
	tokens := NewTokenIssuer("secret")

	var seen models.User
	h := Middleware(authn, tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		seen = actor
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("basic ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.SetBasicAuth(user.Email, "password1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, user.ID, seen.ID)
	})

	t.Run("basic wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.SetBasicAuth(user.Email, "nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
		assert.JSONEq(t, `{"message":"Authentication required","status":401}`, rec.Body.String())
	})

	t.Run("bearer ok", func(t *testing.T) {
		token, err := tokens.Generate(user)
		require.NoError(t, err)
		seen = models.User{}
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, user.ID, seen.ID)
	})

	t.Run("missing credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
