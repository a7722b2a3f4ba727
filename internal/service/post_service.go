package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"quill/internal/listing"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/validation"
)

const (
	maxTitleLen   = 300
	maxContentLen = 50000
	maxTags       = 20
)

type PostService struct {
	postRepo repository.PostRepository
}

type CreatePostInput struct {
	Title      string
	Content    string
	CategoryID *string
	Tags       []string
	Published  bool
}

// UpdatePostInput carries only the fields supplied by the client.
// Empty title or content are ignored; an empty category clears it.
type UpdatePostInput struct {
	Title      *string
	Content    *string
	CategoryID *string
	Tags       *[]string
	Published  *bool
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// ListPosts returns one page of posts plus the total matching q.Filter.
func (s *PostService) ListPosts(ctx context.Context, q listing.Query) (listing.Page[models.Post], error) {
	posts, err := s.postRepo.List(ctx, q)
	if err != nil {
		return listing.Page[models.Post]{}, err
	}
	total, err := s.postRepo.Count(ctx, q.Filter)
	if err != nil {
		return listing.Page[models.Post]{}, err
	}
	return listing.NewPage(posts, total, q.Pagination), nil
}

// GetPost loads a post and records the view.
func (s *PostService) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	post.Views++
	return post, nil
}

// LoadPost loads a post without side effects.
func (s *PostService) LoadPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) CreatePost(ctx context.Context, actor Actor, in CreatePostInput) (*models.Post, error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost")
	post, err := s.createPost(ctx, actor, in)
	observability.EndSpan(span, err)
	return post, err
}

func (s *PostService) createPost(ctx context.Context, actor Actor, in CreatePostInput) (*models.Post, error) {
	authorID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Title and content are required")
	}
	if err := validateLengths(in.Title, in.Content); err != nil {
		return nil, err
	}

	categoryID, err := parseCategory(in.CategoryID)
	if err != nil {
		return nil, err
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:      in.Title,
		Content:    in.Content,
		AuthorID:   authorID,
		CategoryID: categoryID,
		Tags:       tags,
		Published:  in.Published,
		Slug:       newSlug(in.Title),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	observability.PostsCreated.Inc()
	slog.InfoContext(ctx, "post created",
		slog.String("post_id", post.ID.String()),
		slog.String("title", post.Title),
	)

	return s.postRepo.GetByID(ctx, post.ID)
}

// UpdatePost applies in to the post. Only the author or an administrator may update it.
func (s *PostService) UpdatePost(ctx context.Context, actor Actor, id uuid.UUID, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !models.CanModify(actor.Role, actor.ID, post.AuthorID.String()) {
		return nil, models.NewForbiddenError(MsgUpdateOwnPostsOnly)
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		post.Title = *in.Title
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) != "" {
		post.Content = *in.Content
	}
	if err := validateLengths(post.Title, post.Content); err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		categoryID, err := parseCategory(in.CategoryID)
		if err != nil {
			return nil, err
		}
		post.CategoryID = categoryID
	}
	if in.Tags != nil {
		tags, err := normalizeTags(*in.Tags)
		if err != nil {
			return nil, err
		}
		post.Tags = tags
	}
	if in.Published != nil {
		post.Published = *in.Published
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "post updated", slog.String("post_id", post.ID.String()))
	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost removes the post. Only the author or an administrator may delete it.
func (s *PostService) DeletePost(ctx context.Context, actor Actor, id uuid.UUID) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !models.CanModify(actor.Role, actor.ID, post.AuthorID.String()) {
		return models.NewForbiddenError(MsgDeleteOwnPostsOnly)
	}

	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "post deleted",
		slog.String("post_id", id.String()),
		slog.String("title", post.Title),
	)
	return nil
}

// SetPublished changes the publication state of post. Callers are expected
// to have passed the ownership gate.
func (s *PostService) SetPublished(ctx context.Context, post *models.Post, published bool) (*models.Post, error) {
	post.Published = published
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID)
}

func validateLengths(title, content string) error {
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	return nil
}

// parseCategory resolves an optional category reference. An empty value means none.
func parseCategory(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, models.NewValidationError("Invalid category ID")
	}
	return &id, nil
}

func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, models.NewValidationError("A post can have at most 20 tags")
	}
	return out, nil
}

// newSlug derives a URL slug from title with a random suffix for uniqueness.
func newSlug(title string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	base := validation.Slugify(title)
	if base == "" {
		return "post-" + suffix
	}
	if len(base) > 80 {
		base = strings.TrimRight(base[:80], "-")
	}
	return base + "-" + suffix
}
