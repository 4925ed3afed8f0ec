package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/upwave/upwave/internal/apperr"
	"github.com/upwave/upwave/internal/logging"
	mwauth "github.com/upwave/upwave/internal/middleware/auth"
	"github.com/upwave/upwave/internal/repo"
	"github.com/upwave/upwave/internal/transport"
)

type UserHandler struct {
	Repo *repo.GormRepo
}

func (h *UserHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()

	user := mwauth.UserFromContext(c)
	if user == nil {
		return apperr.ErrInvalidToken
	}

	postsCount, err := h.Repo.PostCountByUser(ctx, user.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, transport.CurrentUserResponse{
		UserView:     transport.NewUserView(user),
		TotalUpvotes: user.TotalUpvotes,
		PostsCount:   postsCount,
	})
}

func (h *UserHandler) AdminListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	skip, limit, err := pagination(c, 0, 100)
	if err != nil {
		return err
	}

	users, err := h.Repo.ListUsers(ctx, skip, limit)
	if err != nil {
		return apperr.Internal(err)
	}

	views := make([]transport.UserView, len(users))
	for i := range users {
		views[i] = transport.NewUserView(&users[i])
	}
	return c.JSON(http.StatusOK, views)
}

func (h *UserHandler) AdminGetUser(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ErrInvalidUserID
	}

	user, err := h.Repo.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return apperr.Internal(err)
	}

	postsCount, err := h.Repo.PostCountByUser(ctx, user.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, transport.UserDetailResponse{
		UserView:     transport.NewUserView(user),
		TotalUpvotes: user.TotalUpvotes,
		PostsCount:   postsCount,
		CreatedAt:    user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// Update lets a user change their own username or email; admins may update
// anyone.
func (h *UserHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_update")

	current := mwauth.UserFromContext(c)
	if current == nil {
		return apperr.ErrInvalidToken
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ErrInvalidUserID
	}

	if current.ID != id && !current.IsAdmin {
		return apperr.ErrPermissionDenied
	}

	var req transport.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := h.Repo.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return apperr.Internal(err)
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = strings.ToLower(*req.Email)
	}

	if err := h.Repo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return apperr.ErrEmailOrUsernameExists
		}
		l.Error("user update failed", "error", err)
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, transport.NewUserView(user))
}

func (h *UserHandler) AdminDeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_delete")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ErrInvalidUserID
	}

	if err := h.Repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		l.Error("user delete failed", "error", err)
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "user deleted"})
}

func (h *UserHandler) UserPosts(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ErrInvalidUserID
	}

	if _, err := h.Repo.UserByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return apperr.Internal(err)
	}

	skip, limit, err := pagination(c, 0, 10)
	if err != nil {
		return err
	}

	posts, err := h.Repo.PostsByUser(ctx, id, skip, limit)
	if err != nil {
		return apperr.Internal(err)
	}

	views := make([]transport.PostView, 0, len(posts))
	for i := range posts {
		view, err := postView(ctx, h.Repo, &posts[i], mwauth.UserFromContext(c), false)
		if err != nil {
			return apperr.Internal(err)
		}
		views = append(views, view)
	}
	return c.JSON(http.StatusOK, views)
}

// pagination reads skip/limit query params, rejecting negative or zero
// values with the stable pagination error code.
func pagination(c echo.Context, defSkip, defLimit int) (int, int, error) {
	skip, limit := defSkip, defLimit

	if v := c.QueryParam("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, apperr.ErrInvalidPagination
		}
		skip = n
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, apperr.ErrInvalidPagination
		}
		limit = n
	}
	if limit > 100 {
		limit = 100
	}
	return skip, limit, nil
}
