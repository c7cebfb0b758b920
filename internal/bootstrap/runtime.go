// Package bootstrap opens the runtime dependencies shared by the commands.
package bootstrap

import (
	"fmt"
	"log/slog"

	"tera/internal/cache"
	"tera/internal/config"
	"tera/internal/database"
	"tera/internal/observability"
	"tera/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo writes the demo network when the users table is empty.
	// Ignored in production.
	SeedDemo bool
}

// InitRuntime connects to the database, the optional read replica and Redis,
// and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if _, err := database.ConnectRead(cfg); err != nil {
		return nil, nil, fmt.Errorf("read replica connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo && !cfg.IsProduction() {
		if err := seedIfEmpty(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(db *gorm.DB) error {
	if err := database.Migrate(db); err != nil {
		return err
	}
	var users int64
	if err := db.Table("users").Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		observability.Logger.Info("demo seed skipped; users already present", slog.Int64("users", users))
		return nil
	}
	_, err := seed.NewSeeder(db, seed.DefaultOptions()).Run()
	return err
}
