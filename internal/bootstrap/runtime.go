// Package bootstrap wires the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/service"
)

// InitRuntime connects to DB and Redis and ensures the configured administrator exists.
// The Redis client is nil when the server cannot be reached.
func InitRuntime(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		middleware.Logger.Warn("Redis unavailable, rate limiting disabled", slog.String("error", err.Error()))
	}

	if err := EnsureAdmin(ctx, cfg, repository.NewUserRepository(db), bcrypt.DefaultCost); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	return db, r, nil
}

// EnsureAdmin creates the configured administrator, or promotes the account
// already holding that email or username. It is a no-op when no admin is configured.
func EnsureAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository, cost int) error {
	if cfg == nil || !cfg.AdminBootstrapEnabled() {
		return nil
	}

	existing, err := users.GetByEmailOrUsername(ctx, cfg.AdminEmail, cfg.AdminUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.IsAdmin() {
			return nil
		}
		if _, err := users.UpdateRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return err
		}
		middleware.Logger.InfoContext(ctx, "existing user promoted to admin", slog.String("email", existing.Email))
		return nil
	}

	hashed, err := service.HashPassword(cfg.AdminPassword, cost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.User{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: hashed,
		Role:     models.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "admin account created", slog.String("email", admin.Email))
	return nil
}
