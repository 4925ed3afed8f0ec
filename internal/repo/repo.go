package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// dbTimeout bounds every store call so a stuck connection surfaces as a
// transient failure instead of hanging the request.
const dbTimeout = 5 * time.Second

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, dbTimeout)
}

func (r *GormRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.DB.WithContext(ctx).Transaction(fn)
}
