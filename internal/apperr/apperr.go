package apperr

import (
	"fmt"
	"net/http"
)

// Stable machine-readable codes. Clients branch on these, the detail
// wording is free to change.
const (
	CodeEmailOrUsernameExists = "AUTH_001"
	CodeInvalidCredentials    = "AUTH_002"
	CodeInvalidToken          = "AUTH_003"
	CodeTokenExpired          = "AUTH_004"
	CodeUserNotFoundForToken  = "AUTH_005"
	CodeTokenMismatch         = "AUTH_006"

	CodeUserNotFound        = "USER_001"
	CodeInvalidUserIDFormat = "USER_002"
	CodePermissionDenied    = "USER_003"
	CodeInvalidPagination   = "USER_004"

	CodePostInvalidIDFormat = "POST_001"
	CodePostNotFound        = "POST_002"
	CodePostInvalidFileType = "POST_003"
	CodePostFileTooLarge    = "POST_004"
	CodePostUploadFailed    = "POST_005"
	CodePostAlreadyUpvoted  = "POST_006"
	CodeUpvoteNotFound      = "POST_007"
	CodePostInvalidSortKey  = "POST_008"

	CodeValidation    = "VAL_001"
	CodeInternalError = "SYS_500"
)

// Error is the domain error carried from the point of detection up to the
// HTTP error handler. Status and Code are part of the API contract.
type Error struct {
	Status int
	Code   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on the stable code so sentinel-style comparisons work across
// wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(status int, code, detail string) *Error {
	return &Error{Status: status, Code: code, Detail: detail}
}

// Internal wraps an unexpected failure. The cause is kept for server-side
// logging, the client only ever sees the opaque detail.
func Internal(err error) *Error {
	return &Error{
		Status: http.StatusInternalServerError,
		Code:   CodeInternalError,
		Detail: "internal server error",
		Err:    err,
	}
}

func Validation(detail string) *Error {
	return New(http.StatusUnprocessableEntity, CodeValidation, detail)
}

var (
	ErrEmailOrUsernameExists = New(http.StatusConflict, CodeEmailOrUsernameExists, "email address or username already exists")
	ErrInvalidCredentials    = New(http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password")
	ErrInvalidToken          = New(http.StatusUnauthorized, CodeInvalidToken, "invalid token")
	ErrTokenExpired          = New(http.StatusUnauthorized, CodeTokenExpired, "token expired")
	ErrUserNotFoundForToken  = New(http.StatusUnauthorized, CodeUserNotFoundForToken, "user not found for token")
	ErrTokenMismatch         = New(http.StatusUnauthorized, CodeTokenMismatch, "refresh token mismatch")

	ErrUserNotFound      = New(http.StatusNotFound, CodeUserNotFound, "user not found")
	ErrInvalidUserID     = New(http.StatusBadRequest, CodeInvalidUserIDFormat, "invalid user id format")
	ErrPermissionDenied  = New(http.StatusForbidden, CodePermissionDenied, "permission denied")
	ErrInactiveUser      = New(http.StatusForbidden, CodePermissionDenied, "user account is inactive")
	ErrAdminRequired     = New(http.StatusForbidden, CodePermissionDenied, "admin access required")
	ErrInvalidPagination = New(http.StatusBadRequest, CodeInvalidPagination, "invalid pagination parameters")

	ErrPostInvalidID    = New(http.StatusBadRequest, CodePostInvalidIDFormat, "invalid post id format")
	ErrPostNotFound     = New(http.StatusNotFound, CodePostNotFound, "post not found")
	ErrInvalidFileType  = New(http.StatusUnprocessableEntity, CodePostInvalidFileType, "unsupported file type")
	ErrFileTooLarge     = New(http.StatusRequestEntityTooLarge, CodePostFileTooLarge, "file too large")
	ErrUploadFailed     = New(http.StatusInternalServerError, CodePostUploadFailed, "failed to upload file to storage")
	ErrAlreadyUpvoted   = New(http.StatusConflict, CodePostAlreadyUpvoted, "post already upvoted")
	ErrUpvoteNotFound   = New(http.StatusNotFound, CodeUpvoteNotFound, "upvote not found")
	ErrInvalidSortKey   = New(http.StatusBadRequest, CodePostInvalidSortKey, "invalid sort key")
)
