package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/upwave/upwave/internal/apperr"
	"github.com/upwave/upwave/internal/logging"
	mwauth "github.com/upwave/upwave/internal/middleware/auth"
	"github.com/upwave/upwave/internal/service"
	"github.com/upwave/upwave/internal/transport"
)

type AuthHandler struct {
	Svc *service.AuthService
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register error", "status", 400, "error", err)
		return apperr.Validation("invalid request body")
	}
	if err := req.Validate(); err != nil {
		l.Warn("register error", "status", 422, "error", err)
		return err
	}

	user, err := h.Svc.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, transport.NewUserView(user))
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login error", "status", 400, "error", err)
		return apperr.Validation("invalid request body")
	}
	if err := req.Validate(); err != nil {
		l.Warn("login error", "status", 422, "error", err)
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.LoginResponse{
		Message:      "Login Successful",
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         transport.NewUserView(res.User),
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh error", "status", 400, "error", err)
		return apperr.Validation("invalid request body")
	}
	if err := req.Validate(); err != nil {
		l.Warn("refresh error", "status", 422, "error", err)
		return err
	}

	accessToken, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.RefreshResponse{AccessToken: accessToken})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	user := mwauth.UserFromContext(c)
	if user == nil {
		return apperr.ErrInvalidToken
	}

	if err := h.Svc.Logout(ctx, user); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "logged out"})
}
