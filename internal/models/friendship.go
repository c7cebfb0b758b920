package models

import "time"

// FriendshipStatus represents the status of a friendship request.
type FriendshipStatus string

const (
	// FriendshipStatusPending indicates a pending friendship request.
	FriendshipStatusPending FriendshipStatus = "pending"
	// FriendshipStatusAccepted indicates an accepted friendship request.
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	// FriendshipStatusBlocked indicates a blocked friendship.
	FriendshipStatusBlocked FriendshipStatus = "blocked"
)

// Friendship is an unordered edge between UserID and FriendID. Direction only
// records who created the row; ActionUserID marks who last changed Status.
type Friendship struct {
	UserID       string           `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	FriendID     string           `gorm:"primaryKey;type:varchar(36);index" json:"friend_id"`
	Status       FriendshipStatus `gorm:"type:varchar(20);default:'pending';index:idx_friendships_status" json:"status"`
	ActionUserID string           `gorm:"type:varchar(36)" json:"action_user_id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Friendship) TableName() string {
	return "friendships"
}
