package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/upwave/upwave/internal/apperr"
	"github.com/upwave/upwave/internal/models"
	"github.com/upwave/upwave/internal/repo"
	"github.com/upwave/upwave/internal/tokens"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Upvote{}))

	return New(repo.New(db), tokens.NewCodec([]byte("test-secret"))), db
}

func seedUser(t *testing.T, db *gorm.DB, email, username string) *models.User {
	t.Helper()

	user := &models.User{Email: email, Username: username, PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func echoCtx(authorization string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	c, _ := echoCtx("")
	_, err := a.Authenticate(c)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	c, _ = echoCtx("Basic abc")
	_, err = a.Authenticate(c)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	c, _ = echoCtx("Bearer ")
	_, err = a.Authenticate(c)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	c, _ := echoCtx("Bearer not-a-jwt")
	_, err := a.Authenticate(c)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	a, db := newTestAuthenticator(t)
	user := seedUser(t, db, "a@x.com", "alice")

	tok, err := a.Codec.Encode(user.ID, user.Email, -time.Minute, false)
	require.NoError(t, err)

	c, _ := echoCtx("Bearer " + tok)
	_, err = a.Authenticate(c)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	a, db := newTestAuthenticator(t)
	user := seedUser(t, db, "a@x.com", "alice")

	other := tokens.NewCodec([]byte("another-secret"))
	tok, err := other.Encode(user.ID, user.Email, time.Minute, false)
	require.NoError(t, err)

	c, _ := echoCtx("Bearer " + tok)
	_, err = a.Authenticate(c)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestAuthenticate_UserDeleted(t *testing.T) {
	a, db := newTestAuthenticator(t)
	user := seedUser(t, db, "a@x.com", "alice")

	tok, err := a.Codec.Encode(user.ID, user.Email, time.Minute, false)
	require.NoError(t, err)

	require.NoError(t, db.Delete(&models.User{}, "id = ?", user.ID).Error)

	c, _ := echoCtx("Bearer " + tok)
	_, err = a.Authenticate(c)
	assert.ErrorIs(t, err, apperr.ErrUserNotFoundForToken)
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	a, db := newTestAuthenticator(t)
	user := seedUser(t, db, "a@x.com", "alice")
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	tok, err := a.Codec.Encode(user.ID, user.Email, time.Minute, false)
	require.NoError(t, err)

	c, _ := echoCtx("Bearer " + tok)
	_, err = a.Authenticate(c)
	assert.ErrorIs(t, err, apperr.ErrInactiveUser)
}

func TestAuthenticate_OK(t *testing.T) {
	a, db := newTestAuthenticator(t)
	user := seedUser(t, db, "a@x.com", "alice")

	tok, err := a.Codec.Encode(user.ID, user.Email, time.Minute, false)
	require.NoError(t, err)

	c, _ := echoCtx("Bearer " + tok)
	got, err := a.Authenticate(c)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.Email, got.Email)
}

func TestRequireLogin_SetsContextUser(t *testing.T) {
	a, db := newTestAuthenticator(t)
	user := seedUser(t, db, "a@x.com", "alice")

	tok, err := a.Codec.Encode(user.ID, user.Email, time.Minute, false)
	require.NoError(t, err)

	c, _ := echoCtx("Bearer " + tok)
	handler := a.RequireLogin(func(c echo.Context) error {
		got := UserFromContext(c)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
		return nil
	})
	require.NoError(t, handler(c))
}

func TestAdminOnly(t *testing.T) {
	a, db := newTestAuthenticator(t)

	plain := seedUser(t, db, "a@x.com", "alice")
	admin := seedUser(t, db, "b@x.com", "bob")
	require.NoError(t, db.Model(admin).Update("is_admin", true).Error)

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	tok, err := a.Codec.Encode(plain.ID, plain.Email, time.Minute, false)
	require.NoError(t, err)
	c, _ := echoCtx("Bearer " + tok)
	err = a.AdminOnly(next)(c)
	assert.ErrorIs(t, err, apperr.ErrAdminRequired)

	tok, err = a.Codec.Encode(admin.ID, admin.Email, time.Minute, false)
	require.NoError(t, err)
	c, rec := echoCtx("Bearer " + tok)
	require.NoError(t, a.AdminOnly(next)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalLogin_AnonymousPassesThrough(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	c, _ := echoCtx("")
	err := a.OptionalLogin(func(c echo.Context) error {
		assert.Nil(t, UserFromContext(c))
		return nil
	})(c)
	require.NoError(t, err)
}
