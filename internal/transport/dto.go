package transport

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/upwave/upwave/internal/models"
)

const (
	passwordMinLength = 10
	specialChars      = "@$!%*?&#"
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[@$!%*?&#]`)
)

// PasswordPolicy enforces the registration password rules, one message per
// violated rule.
func PasswordPolicy(value interface{}) error {
	s, _ := value.(string)
	switch {
	case len(s) < passwordMinLength:
		return fmt.Errorf("must be at least %d characters long", passwordMinLength)
	case !upperRe.MatchString(s):
		return errors.New("must contain at least one uppercase letter")
	case !lowerRe.MatchString(s):
		return errors.New("must contain at least one lowercase letter")
	case !digitRe.MatchString(s):
		return errors.New("must contain at least one digit")
	case !specialRe.MatchString(s):
		return fmt.Errorf("must contain at least one special character (%s)", specialChars)
	}
	return nil
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(PasswordPolicy)),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

type UpdateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.NilOrNotEmpty, validation.Length(1, 50)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, 100), is.Email),
	)
}

type TextPostRequest struct {
	Title   string `json:"title"`
	Caption string `json:"caption"`
}

func (r TextPostRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 300)),
		validation.Field(&r.Caption, validation.Required, validation.Length(1, 10000)),
	)
}

type CommentRequest struct {
	Content string `json:"content"`
}

func (r CommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 1000)),
	)
}

// UserView is the public identity shape: never the hash, never the tokens.
type UserView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func NewUserView(u *models.User) UserView {
	return UserView{
		ID:       u.ID.String(),
		Email:    u.Email,
		Username: u.Username,
	}
}

type CurrentUserResponse struct {
	UserView
	TotalUpvotes int   `json:"total_upvotes"`
	PostsCount   int64 `json:"posts_count"`
}

type UserDetailResponse struct {
	UserView
	TotalUpvotes int    `json:"total_upvotes"`
	PostsCount   int64  `json:"posts_count"`
	CreatedAt    string `json:"created_at"`
}

type LoginResponse struct {
	Message      string   `json:"message"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         UserView `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CommentView struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	UserEmail string `json:"user_email"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func NewCommentView(c *models.Comment) CommentView {
	return CommentView{
		ID:        c.ID.String(),
		UserID:    c.UserID.String(),
		Username:  c.User.Username,
		UserEmail: c.User.Email,
		Content:   c.Content,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type PostView struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	PostType      string        `json:"post_type"`
	Title         string        `json:"title,omitempty"`
	Caption       string        `json:"caption"`
	URL           string        `json:"url,omitempty"`
	FileType      string        `json:"file_type,omitempty"`
	CreatedAt     string        `json:"created_at"`
	IsOwner       bool          `json:"is_owner"`
	IsUpvotedByMe bool          `json:"is_upvoted_by_me"`
	UpvoteCount   int64         `json:"upvote_count"`
	CommentCount  int64         `json:"comment_count"`
	UserInfo      UserView      `json:"user_info"`
	Comments      []CommentView `json:"comments,omitempty"`
}
