package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PostTypeMedia = "MEDIA"
	PostTypeText  = "TEXT"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	Email        string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Username     string    `gorm:"uniqueIndex;size:50;not null"  json:"username"`
	PasswordHash string    `gorm:"not null"                      json:"-"`
	IsActive     bool      `gorm:"not null;default:true"         json:"is_active"`
	IsAdmin      bool      `gorm:"not null;default:false"        json:"is_admin"`
	TotalUpvotes int       `gorm:"not null;default:0"            json:"total_upvotes"`

	// Single live session per account: at most one valid refresh token,
	// both fields null or both set.
	RefreshToken          *string    `json:"-"`
	RefreshTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`

	Posts []Post `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Post struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"   json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	PostType string    `gorm:"size:10;index;not null" json:"post_type"`
	Title    string    `gorm:"size:300"               json:"title"`
	Caption  string    `gorm:"type:text"              json:"caption"`
	URL      string    `json:"url"`
	FileType string    `json:"file_type"`
	FileName string    `json:"file_name"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`

	User     User      `gorm:"foreignKey:UserID" json:"-"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Upvotes  []Upvote  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Comment struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	PostID  uuid.UUID `gorm:"type:uuid;index;not null" json:"post_id"`
	Content string    `gorm:"type:text;not null"       json:"content"`

	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Upvote struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_upvote_user_post" json:"user_id"`
	PostID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_upvote_user_post" json:"post_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (u *Upvote) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
