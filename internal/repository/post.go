package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quill/internal/listing"
	"quill/internal/models"
)

// MsgPostNotFound is the NOT_FOUND message for posts.
const MsgPostNotFound = "Post not found"

// PostRepository defines the interface for post data operations
type PostRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	List(ctx context.Context, q listing.Query) ([]models.Post, error)
	Count(ctx context.Context, f listing.Filter) (int64, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withAuthor loads the public fields of the post's author.
func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Preload("Author", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "username", "email", "role", "created_at", "updated_at")
	})
}

func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Scopes(withAuthor).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError(MsgPostNotFound)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// List returns one page of posts matching q, newest first.
func (r *postRepository) List(ctx context.Context, q listing.Query) ([]models.Post, error) {
	posts := []models.Post{}
	if err := r.db.WithContext(ctx).
		Scopes(q.Filter.Scope(), q.Pagination.Scope(), withAuthor).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Count returns the number of posts matching f across all pages.
func (r *postRepository) Count(ctx context.Context, f listing.Filter) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(f.Scope()).Count(&total).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A post with this slug already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	// author_id and created_at are never rewritten
	res := r.db.WithContext(ctx).Model(post).
		Select("title", "content", "category_id", "slug", "published", "tags", "updated_at").
		Updates(post)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError("A post with this slug already exists")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgPostNotFound)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgPostNotFound)
	}
	return nil
}

func (r *postRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(MsgPostNotFound)
	}
	return nil
}
