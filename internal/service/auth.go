package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/upwave/upwave/internal/apperr"
	"github.com/upwave/upwave/internal/hash"
	"github.com/upwave/upwave/internal/logging"
	"github.com/upwave/upwave/internal/models"
	"github.com/upwave/upwave/internal/mykafka"
	"github.com/upwave/upwave/internal/repo"
	"github.com/upwave/upwave/internal/tokens"
)

// AuthService owns the session lifecycle: credential verification, token
// issuance, refresh and revocation. One live refresh token per account,
// stored on the user row and overwritten on every login.
type AuthService struct {
	Repo       *repo.GormRepo
	Codec      *tokens.Codec
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Producer   *mykafka.Producer
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

func (s *AuthService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register failed", "reason", "cannot hash password", "error", err)
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		Email:        strings.ToLower(email),
		Username:     username,
		PasswordHash: pwHash,
		IsActive:     true,
		IsAdmin:      false,
	}

	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register failed", "status", 409, "reason", "email or username exists")
			return nil, apperr.ErrEmailOrUsernameExists
		}
		l.Error("register failed", "reason", "db error", "error", err)
		return nil, apperr.Internal(err)
	}

	s.publish(ctx, "user_events", user.ID.String(), map[string]interface{}{
		"type":     "user_registered",
		"user_id":  user.ID.String(),
		"username": user.Username,
	})

	l.Info("register success", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues an access/refresh pair. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login failed", "status", 401, "reason", "invalid email or password")
			return nil, apperr.ErrInvalidCredentials
		}
		l.Error("login failed", "reason", "db error", "error", err)
		return nil, apperr.Internal(err)
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "status", 401, "reason", "invalid email or password")
		return nil, apperr.ErrInvalidCredentials
	}

	accessToken, err := s.Codec.Encode(user.ID, user.Email, s.AccessTTL, false)
	if err != nil {
		l.Error("login failed", "reason", "cannot sign access token", "error", err)
		return nil, apperr.Internal(err)
	}

	refreshToken, err := s.Codec.Encode(user.ID, user.Email, s.RefreshTTL, true)
	if err != nil {
		l.Error("login failed", "reason", "cannot sign refresh token", "error", err)
		return nil, apperr.Internal(err)
	}

	refreshExp := time.Now().UTC().Add(s.RefreshTTL)
	if err := s.Repo.SetRefreshToken(ctx, user.ID, refreshToken, refreshExp); err != nil {
		l.Error("login failed", "reason", "cannot persist refresh token", "error", err)
		return nil, apperr.Internal(err)
	}

	s.publish(ctx, "user_events", user.ID.String(), map[string]interface{}{
		"type":     "user_logged_in",
		"user_id":  user.ID.String(),
		"username": user.Username,
	})

	l.Info("login success", "user_id", user.ID)
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// stored expiry is authoritative over the token's own exp claim, since the
// stored value can be revoked early. The refresh token itself is not
// rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.Decode(refreshToken)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			l.Warn("refresh failed", "status", 401, "reason", "token expired")
			return "", apperr.ErrTokenExpired
		}
		l.Warn("refresh failed", "status", 401, "reason", "invalid token")
		return "", apperr.ErrInvalidToken
	}
	if !claims.Refresh {
		l.Warn("refresh failed", "status", 401, "reason", "not a refresh token")
		return "", apperr.ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		l.Warn("refresh failed", "status", 401, "reason", "malformed subject claim")
		return "", apperr.ErrInvalidToken
	}

	user, err := s.Repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("refresh failed", "status", 401, "reason", "user not found")
			return "", apperr.ErrUserNotFoundForToken
		}
		l.Error("refresh failed", "reason", "db error", "error", err)
		return "", apperr.Internal(err)
	}

	// A presented token that is not byte-equal to the stored one has been
	// superseded by a later login or cleared by logout.
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		l.Warn("refresh failed", "status", 401, "reason", "token mismatch")
		return "", apperr.ErrTokenMismatch
	}

	if user.RefreshTokenExpiresAt == nil || time.Now().UTC().After(*user.RefreshTokenExpiresAt) {
		l.Warn("refresh failed", "status", 401, "reason", "stored token expired")
		return "", apperr.ErrTokenExpired
	}

	accessToken, err := s.Codec.Encode(user.ID, user.Email, s.AccessTTL, false)
	if err != nil {
		l.Error("refresh failed", "reason", "cannot sign access token", "error", err)
		return "", apperr.Internal(err)
	}

	l.Info("refresh success", "user_id", user.ID)
	return accessToken, nil
}

// Logout revokes the stored refresh token. Logging out an already
// logged-out user succeeds silently.
func (s *AuthService) Logout(ctx context.Context, user *models.User) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if err := s.Repo.ClearRefreshToken(ctx, user.ID); err != nil {
		l.Error("logout failed", "reason", "db error", "error", err)
		return apperr.Internal(err)
	}

	l.Info("logout success", "user_id", user.ID)
	return nil
}

// publish sends a domain event, logging and dropping failures. Events are
// best effort and never fail the request.
func (s *AuthService) publish(ctx context.Context, topic, key string, event map[string]interface{}) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Producer.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", topic, "error", err)
	}
}
