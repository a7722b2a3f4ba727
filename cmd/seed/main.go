// Command seed populates the database with demo users and posts.
package main

import (
	"context"
	"flag"
	"log"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of users to create")
	postsPerUser := flag.Int("posts", 5, "Number of posts per user")
	shouldClean := flag.Bool("clean", false, "Remove posts and non-admin users before seeding")
	fakeSeed := flag.Int64("seed", 0, "Fixed seed for reproducible data (0 = random)")
	flag.Parse()

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

	ctx := context.Background()
	if *shouldClean {
		if err := seed.Clear(ctx, db); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	summary, err := seed.Run(ctx, db, seed.Options{
		Users:        *numUsers,
		PostsPerUser: *postsPerUser,
		Seed:         *fakeSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users and %d posts", summary.Users, summary.Posts)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
