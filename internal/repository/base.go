// Package repository implements the read-only data access layer the feed
// ranks over.
package repository

import (
	"tera/internal/database"

	"gorm.io/gorm"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}
