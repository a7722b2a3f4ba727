// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/validation"
)

// DefaultPassword is the password given to every seeded account.
const DefaultPassword = "password123"

// Options configure a seeding run.
type Options struct {
	Users        int
	PostsPerUser int
	// Seed fixes the fake data generator; zero means time-based.
	Seed int64
	// MaxDays spreads post creation times over the past MaxDays days.
	MaxDays int
	// BcryptCost overrides the password hashing cost.
	BcryptCost int
}

// Summary reports what a seeding run created.
type Summary struct {
	Users int
	Posts int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	fake *gofakeit.Faker
	opts Options
	hash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{db: db, fake: gofakeit.New(seed), opts: opts, hash: string(hashed)}, nil
}

// BuildUser returns an unsaved user with fake identity fields.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	username := fmt.Sprintf("%s%d", usernameSanitizer(f.fake.Username()), f.fake.Number(100, 999))
	if len(username) > validation.MaxUsernameLength {
		username = username[:validation.MaxUsernameLength]
	}
	user := &models.User{
		Username: username,
		Email:    strings.ToLower(username) + "@" + f.fake.DomainName(),
		Password: f.hash,
		Role:     models.RoleUser,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// usernameSanitizer drops characters that registration would reject,
// such as the apostrophe in some generated surnames.
func usernameSanitizer(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, s)
}

// BuildPost returns an unsaved post authored by user.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	title := f.fake.Sentence(5)
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	now := time.Now()

	post := &models.Post{
		Title:     title,
		Content:   f.fake.Paragraph(2, 4, 12, "\n\n"),
		AuthorID:  user.ID,
		Slug:      validation.Slugify(title) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Published: f.fake.Number(1, 10) <= 7,
		Tags:      []string{strings.ToLower(f.fake.Word()), strings.ToLower(f.fake.BuzzWord())},
		Views:     f.fake.Number(0, 500),
		CreatedAt: f.fake.DateRange(now.AddDate(0, 0, -maxDays), now),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost constructs and persists a sample post for the given user.
func (f *Factory) CreatePost(ctx context.Context, user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)
	if err := f.db.WithContext(ctx).Omit("Author").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// Run creates opts.Users users with opts.PostsPerUser posts each.
func Run(ctx context.Context, db *gorm.DB, opts Options) (Summary, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txf := *f
		txf.db = tx
		for i := 0; i < opts.Users; i++ {
			user, err := txf.CreateUser(ctx)
			if err != nil {
				return fmt.Errorf("create user %d: %w", i, err)
			}
			summary.Users++

			posts := make([]*models.Post, 0, opts.PostsPerUser)
			for j := 0; j < opts.PostsPerUser; j++ {
				posts = append(posts, txf.BuildPost(user))
			}
			if len(posts) > 0 {
				if err := tx.Omit("Author").Create(&posts).Error; err != nil {
					return fmt.Errorf("create posts for %s: %w", user.Username, err)
				}
				summary.Posts += len(posts)
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	middleware.Logger.InfoContext(ctx, "seed completed",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
	)
	return summary, nil
}

// Clear removes every post and every non-admin account.
func Clear(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("clear posts: %w", err)
		}
		if err := tx.Where("role <> ?", models.RoleAdmin).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}
