// Command seed fills the database with a synthetic social network.
package main

import (
	"flag"
	"log"

	"tera/internal/config"
	"tera/internal/database"
	"tera/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numPosts := flag.Int("posts", defaults.Posts, "Number of posts to create")
	numTags := flag.Int("hashtags", defaults.Hashtags, "Number of hashtags to create")
	friends := flag.Int("friends", defaults.FriendsPerUser, "Average friendships per user")
	maxDays := flag.Int("days", defaults.MaxDays, "Spread post timestamps over this many days")
	fakerSeed := flag.Int64("seed", 0, "Generator seed (0 = random)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	sum, err := seed.NewSeeder(db, seed.Options{
		Users:          *numUsers,
		Posts:          *numPosts,
		Hashtags:       *numTags,
		MaxDays:        *maxDays,
		FriendsPerUser: *friends,
		Seed:           *fakerSeed,
		Clean:          *shouldClean,
	}).Run()
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d friendships, %d posts, %d reactions, %d comments",
		sum.Users, sum.Friendships, sum.Posts, sum.Reactions, sum.Comments)
}
