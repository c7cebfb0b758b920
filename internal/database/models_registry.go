package database

import "tera/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Friendship{},
		&models.Hashtag{},
		&models.Post{},
		&models.PostHashtag{},
		&models.PostMedia{},
		&models.LinkPreview{},
		&models.PostReaction{},
		&models.Comment{},
		&models.UserAffinity{},
		&models.UserHashtagAffinity{},
	}
}
