package cache

import (
	"fmt"
	"time"
)

const (
	UserKeyPrefix = "user:%s"
	SeenKeyPrefix = "feed:seen:%s"
)

// UserTTL bounds how stale a cached viewer profile may be.
const UserTTL = 5 * time.Minute

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func SeenKey(viewerID string) string {
	return fmt.Sprintf(SeenKeyPrefix, viewerID)
}
