// Package main provides admin management utilities for Quill.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/repository"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id>   - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <user_id>    - Demote admin to user")
	fmt.Println("  go run ./cmd/admin list-admins         - List all admins")
	fmt.Println("  go run ./cmd/admin migrate             - Apply schema migrations")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <user_id>\n", command)
			os.Exit(1)
		}
		role := models.RoleAdmin
		if command == "demote" {
			role = models.RoleUser
		}
		setRole(ctx, users, os.Args[2], role)

	case "list-admins":
		listAdmins(ctx, users)

	case "migrate":
		migrate(db)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func setRole(ctx context.Context, users repository.UserRepository, rawID string, role models.Role) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		fmt.Printf("Invalid user ID %q\n", rawID)
		os.Exit(1)
	}

	user, err := users.GetByID(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			fmt.Printf("User with ID %s not found\n", rawID)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if user.Role == role {
		fmt.Printf("User %s (ID: %s) already has role %s\n", user.Username, user.ID, role)
		return
	}

	if _, err := users.UpdateRole(ctx, id, role); err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("Updated %s (ID: %s) to role %s\n", user.Username, user.ID, role)
}

func listAdmins(ctx context.Context, users repository.UserRepository) {
	admins, err := users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("Current Admins:")
	for _, admin := range admins {
		fmt.Printf("ID: %s | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
}

func migrate(db *gorm.DB) {
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("Migrations applied")
}
