package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/upwave/upwave/internal/models"
)

var ErrAlreadyUpvoted = errors.New("post already upvoted")

const (
	SortNew           = "new"
	SortTop           = "top"
	SortMostCommented = "most_commented"
)

func (r *GormRepo) CreatePost(ctx context.Context, p *models.Post) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var post models.Post
	err := r.DB.WithContext(ctx).
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Comments.User").
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *GormRepo) DeletePost(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.DB.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) PostsByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Post, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var posts []models.Post
	err := r.DB.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&posts).Error
	return posts, err
}

// Feed returns posts ordered by the requested sort key. Count columns come
// from correlated subqueries so sorting by them stays in the database.
func (r *GormRepo) Feed(ctx context.Context, sort string, offset, limit int) ([]models.Post, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	q := r.DB.WithContext(ctx).Model(&models.Post{}).Preload("User")

	switch sort {
	case SortTop:
		q = q.Order("(SELECT COUNT(*) FROM upvotes WHERE upvotes.post_id = posts.id) DESC, created_at DESC")
	case SortMostCommented:
		q = q.Order("(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) DESC, created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var posts []models.Post
	err := q.Offset(offset).Limit(limit).Find(&posts).Error
	return posts, err
}

func (r *GormRepo) UpvoteCount(ctx context.Context, postID uuid.UUID) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Upvote{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func (r *GormRepo) CommentCount(ctx context.Context, postID uuid.UUID) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func (r *GormRepo) PostCountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *GormRepo) HasUpvoted(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Upvote{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

// AddUpvote creates the upvote and bumps the author's total in one
// transaction. A duplicate surfaces as ErrAlreadyUpvoted.
func (r *GormRepo) AddUpvote(ctx context.Context, userID, postID uuid.UUID, authorID uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Upvote{}).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyUpvoted
		}
		if err := tx.Create(&models.Upvote{UserID: userID, PostID: postID}).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyUpvoted
			}
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", authorID).
			UpdateColumn("total_upvotes", gorm.Expr("total_upvotes + 1")).Error
	})
}

func (r *GormRepo) RemoveUpvote(ctx context.Context, userID, postID uuid.UUID, authorID uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Upvote{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.User{}).Where("id = ? AND total_upvotes > 0", authorID).
			UpdateColumn("total_upvotes", gorm.Expr("total_upvotes - 1")).Error
	})
}

func (r *GormRepo) AddComment(ctx context.Context, c *models.Comment) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.DB.WithContext(ctx).Create(c).Error; err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Preload("User").First(c, "id = ?", c.ID).Error
}
