package handlers_test

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upwave/upwave/internal/apperr"
)

func TestMe(t *testing.T) {
	a := newTestApp(t)
	access, _ := registerAndLogin(t, a, "a@x.com", "alice", strongPassword)
	createTextPost(t, a, access, "one")
	createTextPost(t, a, access, "two")

	rec := a.do(t, http.MethodGet, "/api/v1/users/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me struct {
		Email      string `json:"email"`
		Username   string `json:"username"`
		PostsCount int64  `json:"posts_count"`
	}
	decodeBody(t, rec, &me)
	assert.Equal(t, "a@x.com", me.Email)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, int64(2), me.PostsCount)
}

func TestMe_RequiresAuth(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.CodeInvalidToken, errorCode(t, rec))
}

func TestAdminEndpoints_Gated(t *testing.T) {
	a := newTestApp(t)
	plain, _ := registerAndLogin(t, a, "a@x.com", "alice", strongPassword)

	rec := a.do(t, http.MethodGet, "/api/v1/users/admin/users", plain, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.CodePermissionDenied, errorCode(t, rec))

	registerAndLogin(t, a, "root@x.com", "root", strongPassword)
	promoteToAdmin(t, a, "root@x.com")
	admin, _ := login(t, a, "root@x.com", strongPassword)

	rec = a.do(t, http.MethodGet, "/api/v1/users/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var users []struct {
		Username string `json:"username"`
	}
	decodeBody(t, rec, &users)
	assert.Len(t, users, 2)
}

func TestAdminGetUser(t *testing.T) {
	a := newTestApp(t)
	registerAndLogin(t, a, "a@x.com", "alice", strongPassword)
	registerAndLogin(t, a, "root@x.com", "root", strongPassword)
	promoteToAdmin(t, a, "root@x.com")
	admin, _ := login(t, a, "root@x.com", strongPassword)

	rec := a.do(t, http.MethodGet, "/api/v1/users/me", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &me)

	rec = a.do(t, http.MethodGet, "/api/v1/users/admin/"+me.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var detail struct {
		Username  string `json:"username"`
		CreatedAt string `json:"created_at"`
	}
	decodeBody(t, rec, &detail)
	assert.Equal(t, "root", detail.Username)
	assert.NotEmpty(t, detail.CreatedAt)

	rec = a.do(t, http.MethodGet, "/api/v1/users/admin/not-a-uuid", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.CodeInvalidUserIDFormat, errorCode(t, rec))
}

func TestUpdateUser_SelfAndForbidden(t *testing.T) {
	a := newTestApp(t)
	alice, _ := registerAndLogin(t, a, "a@x.com", "alice", strongPassword)
	bob, _ := registerAndLogin(t, a, "b@x.com", "bob", strongPassword)

	rec := a.do(t, http.MethodGet, "/api/v1/users/me", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &me)

	// Self-update works.
	rec = a.do(t, http.MethodPut, "/api/v1/users/"+me.ID, alice, echo.Map{"username": "alice2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		Username string `json:"username"`
	}
	decodeBody(t, rec, &updated)
	assert.Equal(t, "alice2", updated.Username)

	// Another plain user may not touch the account.
	rec = a.do(t, http.MethodPut, "/api/v1/users/"+me.ID, bob, echo.Map{"username": "hacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.CodePermissionDenied, errorCode(t, rec))

	// Taking an existing username conflicts.
	rec = a.do(t, http.MethodPut, "/api/v1/users/"+me.ID, alice, echo.Map{"username": "bob"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperr.CodeEmailOrUsernameExists, errorCode(t, rec))
}

func TestAdminDeleteUser(t *testing.T) {
	a := newTestApp(t)
	alice, _ := registerAndLogin(t, a, "a@x.com", "alice", strongPassword)
	registerAndLogin(t, a, "root@x.com", "root", strongPassword)
	promoteToAdmin(t, a, "root@x.com")
	admin, _ := login(t, a, "root@x.com", strongPassword)

	rec := a.do(t, http.MethodGet, "/api/v1/users/me", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &me)

	rec = a.do(t, http.MethodDelete, "/api/v1/users/admin/"+me.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The deleted account's token no longer resolves.
	rec = a.do(t, http.MethodGet, "/api/v1/users/me", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.CodeUserNotFoundForToken, errorCode(t, rec))

	rec = a.do(t, http.MethodDelete, "/api/v1/users/admin/"+me.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperr.CodeUserNotFound, errorCode(t, rec))
}

func TestUserPosts(t *testing.T) {
	a := newTestApp(t)
	alice, _ := registerAndLogin(t, a, "a@x.com", "alice", strongPassword)
	createTextPost(t, a, alice, "one")
	createTextPost(t, a, alice, "two")

	rec := a.do(t, http.MethodGet, "/api/v1/users/me", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &me)

	rec = a.do(t, http.MethodGet, "/api/v1/users/"+me.ID+"/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var posts []struct {
		Caption string `json:"caption"`
	}
	decodeBody(t, rec, &posts)
	assert.Len(t, posts, 2)

	rec = a.do(t, http.MethodGet, "/api/v1/users/"+me.ID+"/posts?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &posts)
	assert.Len(t, posts, 1)
}
