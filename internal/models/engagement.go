package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hashtag is a normalized tag with a global usage counter.
type Hashtag struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Tag        string    `gorm:"uniqueIndex;not null" json:"tag"`
	UsageCount int       `gorm:"default:0" json:"-"`
	CreatedAt  time.Time `json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (h *Hashtag) BeforeCreate(_ *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// PostHashtag is the post/hashtag join row.
type PostHashtag struct {
	PostID    string `gorm:"primaryKey;type:varchar(36)"`
	HashtagID string `gorm:"primaryKey;type:varchar(36);index"`
}

// TableName specifies the table name for GORM
func (PostHashtag) TableName() string {
	return "post_hashtags"
}

// PostReaction records one viewer's reaction to a post. A user holds at most
// one reaction per post.
type PostReaction struct {
	UserID     string    `gorm:"primaryKey;type:varchar(36)"`
	PostID     string    `gorm:"primaryKey;type:varchar(36);index"`
	ReactionID string    `gorm:"type:varchar(36);not null"`
	CreatedAt  time.Time `gorm:"index"`
}

// Comment is counted for engagement and used as an interest signal.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;index" json:"post_id"`
	AuthorID  string    `gorm:"type:varchar(36);not null;index" json:"author_id"`
	ParentID  *string   `gorm:"type:varchar(36)" json:"parent_id,omitempty"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// UserAffinity is the directional viewer-to-author score maintained by the
// engagement tracker. The feed only reads it.
type UserAffinity struct {
	SourceUserID string    `gorm:"primaryKey;type:varchar(36)"`
	TargetUserID string    `gorm:"primaryKey;type:varchar(36)"`
	Score        int       `gorm:"not null;default:0"`
	UpdatedAt    time.Time
}

// UserHashtagAffinity is the viewer-to-hashtag score maintained by the
// engagement tracker. The feed only reads it.
type UserHashtagAffinity struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)"`
	HashtagID string    `gorm:"primaryKey;type:varchar(36)"`
	Score     int       `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
