package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/upwave/upwave/internal/apperr"
	"github.com/upwave/upwave/internal/logging"
	mwauth "github.com/upwave/upwave/internal/middleware/auth"
	"github.com/upwave/upwave/internal/models"
	"github.com/upwave/upwave/internal/mykafka"
	"github.com/upwave/upwave/internal/repo"
	"github.com/upwave/upwave/internal/service/search"
	"github.com/upwave/upwave/internal/storage"
	"github.com/upwave/upwave/internal/transport"
)

const maxUploadSize = 5 << 20 // 5MB

var allowedFileTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

type PostHandler struct {
	Repo     *repo.GormRepo
	Media    *storage.MediaStore
	ES       *elasticsearch.Client
	Index    string
	Producer *mykafka.Producer
}

// UploadMedia creates a media post: validates the file, uploads it to
// object storage, then persists the post row.
func (h *PostHandler) UploadMedia(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "post_upload")

	user := mwauth.UserFromContext(c)
	if user == nil {
		return apperr.ErrInvalidToken
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file is required")
	}
	if fileHeader.Size > maxUploadSize {
		return apperr.ErrFileTooLarge
	}

	contentType, ok := allowedFileTypes[strings.ToLower(filepath.Ext(fileHeader.Filename))]
	if !ok {
		return apperr.ErrInvalidFileType
	}

	if h.Media == nil {
		l.Error("upload failed", "reason", "media storage not configured")
		return apperr.ErrUploadFailed
	}

	src, err := fileHeader.Open()
	if err != nil {
		l.Error("upload failed", "reason", "cannot open multipart file", "error", err)
		return apperr.ErrUploadFailed
	}
	defer src.Close()

	key := storage.StorageKey()
	if err := h.Media.Upload(ctx, key, contentType, src); err != nil {
		l.Error("upload failed", "error", err)
		return apperr.ErrUploadFailed
	}

	url, err := h.Media.PresignedGetURL(ctx, key)
	if err != nil {
		l.Error("upload failed", "reason", "cannot presign url", "error", err)
		return apperr.ErrUploadFailed
	}

	post := &models.Post{
		UserID:   user.ID,
		PostType: models.PostTypeMedia,
		Title:    c.FormValue("title"),
		Caption:  c.FormValue("caption"),
		URL:      url,
		FileType: contentType,
		FileName: key,
	}
	if err := h.Repo.CreatePost(ctx, post); err != nil {
		l.Error("post create failed", "error", err)
		return apperr.Internal(err)
	}
	post.User = *user

	h.afterCreate(ctx, post)

	view, err := postView(ctx, h.Repo, post, user, false)
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *PostHandler) CreateText(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "post_text")

	user := mwauth.UserFromContext(c)
	if user == nil {
		return apperr.ErrInvalidToken
	}

	var req transport.TextPostRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	post := &models.Post{
		UserID:   user.ID,
		PostType: models.PostTypeText,
		Title:    req.Title,
		Caption:  req.Caption,
	}
	if err := h.Repo.CreatePost(ctx, post); err != nil {
		l.Error("post create failed", "error", err)
		return apperr.Internal(err)
	}
	post.User = *user

	h.afterCreate(ctx, post)

	view, err := postView(ctx, h.Repo, post, user, false)
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *PostHandler) GetPost(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ErrPostInvalidID
	}

	post, err := h.Repo.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrPostNotFound
		}
		return apperr.Internal(err)
	}

	view, err := postView(ctx, h.Repo, post, mwauth.UserFromContext(c), true)
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, view)
}

// Delete removes a post; only the owner or an admin may delete it.
func (h *PostHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "post_delete")

	user := mwauth.UserFromContext(c)
	if user == nil {
		return apperr.ErrInvalidToken
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ErrPostInvalidID
	}

	post, err := h.Repo.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrPostNotFound
		}
		return apperr.Internal(err)
	}

	if post.UserID != user.ID && !user.IsAdmin {
		return apperr.ErrPermissionDenied
	}

	if err := h.Repo.DeletePost(ctx, id); err != nil {
		l.Error("post delete failed", "error", err)
		return apperr.Internal(err)
	}

	if post.PostType == models.PostTypeMedia && h.Media != nil && post.FileName != "" {
		if err := h.Media.Delete(ctx, post.FileName); err != nil {
			l.Error("media delete failed", "key", post.FileName, "error", err)
		}
	}
	if h.ES != nil {
		if err := search.DeletePost(ctx, h.ES, h.Index, id.String()); err != nil {
			l.Error("search deindex failed", "error", err)
		}
	}

	h.publish(ctx, post.ID.String(), map[string]interface{}{
		"type":    "post_deleted",
		"post_id": post.ID.String(),
		"user_id": user.ID.String(),
	})

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "post deleted"})
}

func (h *PostHandler) Upvote(c echo.Context) error {
	ctx := c.Request().Context()

	user := mwauth.UserFromContext(c)
	if user == nil {
		return apperr.ErrInvalidToken
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ErrPostInvalidID
	}

	post, err := h.Repo.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrPostNotFound
		}
		return apperr.Internal(err)
	}

	if err := h.Repo.AddUpvote(ctx, user.ID, id, post.UserID); err != nil {
		if errors.Is(err, repo.ErrAlreadyUpvoted) {
			return apperr.ErrAlreadyUpvoted
		}
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "post upvoted"})
}

func (h *PostHandler) RemoveUpvote(c echo.Context) error {
	ctx := c.Request().Context()

	user := mwauth.UserFromContext(c)
	if user == nil {
		return apperr.ErrInvalidToken
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ErrPostInvalidID
	}

	post, err := h.Repo.PostByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrPostNotFound
		}
		return apperr.Internal(err)
	}

	if err := h.Repo.RemoveUpvote(ctx, user.ID, id, post.UserID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrUpvoteNotFound
		}
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "upvote removed"})
}

func (h *PostHandler) Comment(c echo.Context) error {
	ctx := c.Request().Context()

	user := mwauth.UserFromContext(c)
	if user == nil {
		return apperr.ErrInvalidToken
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.ErrPostInvalidID
	}

	var req transport.CommentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return err
	}

	if _, err := h.Repo.PostByID(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrPostNotFound
		}
		return apperr.Internal(err)
	}

	comment := &models.Comment{
		UserID:  user.ID,
		PostID:  id,
		Content: req.Content,
	}
	if err := h.Repo.AddComment(ctx, comment); err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusCreated, transport.NewCommentView(comment))
}

func (h *PostHandler) Feed(c echo.Context) error {
	ctx := c.Request().Context()

	sort := c.QueryParam("sort")
	switch sort {
	case "", repo.SortNew:
		sort = repo.SortNew
	case repo.SortTop, repo.SortMostCommented:
	default:
		return apperr.ErrInvalidSortKey
	}

	skip, limit, err := pagination(c, 0, 10)
	if err != nil {
		return err
	}

	posts, err := h.Repo.Feed(ctx, sort, skip, limit)
	if err != nil {
		return apperr.Internal(err)
	}

	current := mwauth.UserFromContext(c)
	views := make([]transport.PostView, 0, len(posts))
	for i := range posts {
		view, err := postView(ctx, h.Repo, &posts[i], current, false)
		if err != nil {
			return apperr.Internal(err)
		}
		views = append(views, view)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *PostHandler) afterCreate(ctx context.Context, post *models.Post) {
	l := logging.FromContext(ctx)

	if h.ES != nil {
		doc := search.PostDocument{
			ID:       post.ID.String(),
			UserID:   post.UserID.String(),
			Username: post.User.Username,
			PostType: post.PostType,
			Title:    post.Title,
			Caption:  post.Caption,
			URL:      post.URL,
		}
		if err := search.IndexPost(ctx, h.ES, h.Index, doc); err != nil {
			l.Error("search index failed", "post_id", post.ID, "error", err)
		}
	}

	h.publish(ctx, post.ID.String(), map[string]interface{}{
		"type":    "post_created",
		"post_id": post.ID.String(),
		"user_id": post.UserID.String(),
	})
}

func (h *PostHandler) publish(ctx context.Context, key string, event map[string]interface{}) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(pubCtx, "post_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", "post_events", "error", err)
	}
}

// postView assembles the response shape for one post, including counts and
// the viewer-relative flags.
func postView(ctx context.Context, r *repo.GormRepo, post *models.Post, current *models.User, withComments bool) (transport.PostView, error) {
	upvotes, err := r.UpvoteCount(ctx, post.ID)
	if err != nil {
		return transport.PostView{}, err
	}
	comments, err := r.CommentCount(ctx, post.ID)
	if err != nil {
		return transport.PostView{}, err
	}

	view := transport.PostView{
		ID:           post.ID.String(),
		UserID:       post.UserID.String(),
		PostType:     post.PostType,
		Title:        post.Title,
		Caption:      post.Caption,
		URL:          post.URL,
		FileType:     post.FileType,
		CreatedAt:    post.CreatedAt.UTC().Format(time.RFC3339),
		UpvoteCount:  upvotes,
		CommentCount: comments,
		UserInfo:     transport.NewUserView(&post.User),
	}

	if current != nil {
		view.IsOwner = current.ID == post.UserID
		upvoted, err := r.HasUpvoted(ctx, current.ID, post.ID)
		if err != nil {
			return transport.PostView{}, err
		}
		view.IsUpvotedByMe = upvoted
	}

	if withComments {
		view.Comments = make([]transport.CommentView, len(post.Comments))
		for i := range post.Comments {
			view.Comments[i] = transport.NewCommentView(&post.Comments[i])
		}
	}

	return view, nil
}
