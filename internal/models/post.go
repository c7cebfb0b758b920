package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post represents a post. Content is an opaque JSON document that the feed
// passes through untouched.
type Post struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID     string         `gorm:"type:varchar(36);not null;index:idx_posts_author_created,priority:1" json:"author_id"`
	Author       User           `gorm:"foreignKey:AuthorID" json:"author"`
	Content      datatypes.JSON `json:"content"`
	VisibilityID string         `gorm:"type:varchar(36)" json:"visibility_id,omitempty"`
	SharedPostID *string        `gorm:"type:varchar(36);index" json:"shared_post_id,omitempty"`
	CreatedAt    time.Time      `gorm:"index;index:idx_posts_author_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Media       []PostMedia `gorm:"foreignKey:PostID" json:"media"`
	Hashtags    []Hashtag   `gorm:"many2many:post_hashtags" json:"hashtags"`
	LinkPreview *LinkPreview `gorm:"foreignKey:PostID" json:"link_preview,omitempty"`

	// Computed at query time, never persisted.
	ReactionCount         int     `gorm:"->;-:migration" json:"reaction_count"`
	CommentCount          int     `gorm:"->;-:migration" json:"comment_count"`
	ShareCount            int     `gorm:"->;-:migration" json:"share_count"`
	CurrentUserReactionID *string `gorm:"->;-:migration" json:"current_user_reaction_id,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PostMedia is one attachment. SortOrder fixes display order.
type PostMedia struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string `gorm:"type:varchar(36);not null;index" json:"-"`
	URL       string `gorm:"not null" json:"url"`
	Type      string `gorm:"type:varchar(20)" json:"type"`
	AltText   string `json:"alt_text,omitempty"`
	SortOrder int    `json:"order"`
}

// TableName specifies the table name for GORM
func (PostMedia) TableName() string {
	return "post_media"
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (m *PostMedia) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// LinkPreview is the unfurled first link of a post.
type LinkPreview struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID      string `gorm:"type:varchar(36);uniqueIndex" json:"-"`
	URL         string `gorm:"not null" json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Position    int    `json:"position"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (l *LinkPreview) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
