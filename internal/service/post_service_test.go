package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/internal/listing"
	"quill/internal/models"
)

func strp(s string) *string { return &s }

func TestPostService_CreatePost(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	actor := Actor{ID: authorID.String(), Role: models.RoleUser}
	catID := uuid.New()

	tests := []struct {
		name    string
		actor   Actor
		in      CreatePostInput
		code    string
		message string
	}{
		{"missing title", actor, CreatePostInput{Content: "c"}, models.CodeValidation, "Title and content are required"},
		{"missing content", actor, CreatePostInput{Title: "t", Content: "   "}, models.CodeValidation, "Title and content are required"},
		{"title too long", actor, CreatePostInput{Title: strings.Repeat("x", 301), Content: "c"}, models.CodeValidation, ""},
		{"bad category", actor, CreatePostInput{Title: "t", Content: "c", CategoryID: strp("nope")}, models.CodeValidation, "Invalid category ID"},
		{"anonymous actor", Actor{}, CreatePostInput{Title: "t", Content: "c"}, models.CodeUnauthenticated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPostService(memoryPostRepo())
			_, err := svc.CreatePost(ctx, tt.actor, tt.in)
			assertAppError(t, err, tt.code, tt.message)
		})
	}

	t.Run("success", func(t *testing.T) {
		svc := NewPostService(memoryPostRepo())
		post, err := svc.CreatePost(ctx, actor, CreatePostInput{
			Title:      "Hello, World!",
			Content:    "First post",
			CategoryID: strp(catID.String()),
			Tags:       []string{" Go ", "go", "", "web"},
			Published:  true,
		})
		require.NoError(t, err)
		assert.Equal(t, authorID, post.AuthorID)
		assert.True(t, strings.HasPrefix(post.Slug, "hello-world-"))
		assert.Len(t, post.Slug, len("hello-world-")+8)
		assert.Equal(t, []string{"go", "web"}, post.Tags)
		require.NotNil(t, post.CategoryID)
		assert.Equal(t, catID, *post.CategoryID)
		assert.True(t, post.Published)
	})

	t.Run("distinct slugs for equal titles", func(t *testing.T) {
		svc := NewPostService(memoryPostRepo())
		a, err := svc.CreatePost(ctx, actor, CreatePostInput{Title: "Same", Content: "c"})
		require.NoError(t, err)
		b, err := svc.CreatePost(ctx, actor, CreatePostInput{Title: "Same", Content: "c"})
		require.NoError(t, err)
		assert.NotEqual(t, a.Slug, b.Slug)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := memoryPostRepo()
		repo.createFn = func(context.Context, *models.Post) error {
			return models.NewInternalError(errors.New("db down"))
		}
		_, err := NewPostService(repo).CreatePost(ctx, actor, CreatePostInput{Title: "t", Content: "c"})
		assertAppError(t, err, models.CodeInternal, "Internal server error")
	})
}

func TestPostService_UpdatePost(t *testing.T) {
	ctx := context.Background()
	owner := Actor{ID: uuid.NewString(), Role: models.RoleUser}
	other := Actor{ID: uuid.NewString(), Role: models.RoleUser}
	admin := Actor{ID: uuid.NewString(), Role: models.RoleAdmin}

	newPost := func() *models.Post {
		return &models.Post{
			ID:        uuid.New(),
			Title:     "Original",
			Content:   "Body",
			AuthorID:  uuid.MustParse(owner.ID),
			Tags:      []string{"a"},
			Published: true,
		}
	}

	t.Run("owner updates provided fields only", func(t *testing.T) {
		post := newPost()
		svc := NewPostService(memoryPostRepo(post))
		published := false
		got, err := svc.UpdatePost(ctx, owner, post.ID, UpdatePostInput{
			Title:     strp("X"),
			Content:   strp(""),
			Published: &published,
		})
		require.NoError(t, err)
		assert.Equal(t, "X", got.Title)
		assert.Equal(t, "Body", got.Content)
		assert.Equal(t, []string{"a"}, got.Tags)
		assert.False(t, got.Published)
		assert.Equal(t, post.AuthorID, got.AuthorID)
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		post := newPost()
		svc := NewPostService(memoryPostRepo(post))
		_, err := svc.UpdatePost(ctx, other, post.ID, UpdatePostInput{Title: strp("X")})
		assertAppError(t, err, models.CodeForbidden, MsgUpdateOwnPostsOnly)
	})

	t.Run("admin may update any post", func(t *testing.T) {
		post := newPost()
		svc := NewPostService(memoryPostRepo(post))
		got, err := svc.UpdatePost(ctx, admin, post.ID, UpdatePostInput{Title: strp("X")})
		require.NoError(t, err)
		assert.Equal(t, "X", got.Title)
	})

	t.Run("clear category and replace tags", func(t *testing.T) {
		post := newPost()
		cat := uuid.New()
		post.CategoryID = &cat
		svc := NewPostService(memoryPostRepo(post))
		tags := []string{}
		got, err := svc.UpdatePost(ctx, owner, post.ID, UpdatePostInput{CategoryID: strp(""), Tags: &tags})
		require.NoError(t, err)
		assert.Nil(t, got.CategoryID)
		assert.Empty(t, got.Tags)
	})

	t.Run("missing post", func(t *testing.T) {
		svc := NewPostService(memoryPostRepo())
		_, err := svc.UpdatePost(ctx, owner, uuid.New(), UpdatePostInput{})
		assertAppError(t, err, models.CodeNotFound, "Post not found")
	})
}

func TestPostService_DeletePost(t *testing.T) {
	ctx := context.Background()
	owner := Actor{ID: uuid.NewString(), Role: models.RoleUser}
	other := Actor{ID: uuid.NewString(), Role: models.RoleUser}
	admin := Actor{ID: uuid.NewString(), Role: models.RoleAdmin}

	tests := []struct {
		name    string
		actor   Actor
		wantErr string
	}{
		{"owner", owner, ""},
		{"admin", admin, ""},
		{"other user", other, models.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &models.Post{ID: uuid.New(), AuthorID: uuid.MustParse(owner.ID)}
			repo := memoryPostRepo(post)
			svc := NewPostService(repo)

			err := svc.DeletePost(ctx, tt.actor, post.ID)
			if tt.wantErr != "" {
				assertAppError(t, err, tt.wantErr, MsgDeleteOwnPostsOnly)
				_, getErr := repo.GetByID(ctx, post.ID)
				assert.NoError(t, getErr)
				return
			}
			require.NoError(t, err)
			_, getErr := repo.GetByID(ctx, post.ID)
			assert.True(t, models.IsNotFound(getErr))
		})
	}
}

func TestPostService_GetPostIncrementsViews(t *testing.T) {
	ctx := context.Background()
	post := &models.Post{ID: uuid.New(), Title: "t", Views: 4}
	svc := NewPostService(memoryPostRepo(post))

	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Views)

	got, err = svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Views)

	loaded, err := svc.LoadPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, loaded.Views)
}

func TestPostService_ListPosts(t *testing.T) {
	ctx := context.Background()
	repo := memoryPostRepo(&models.Post{ID: uuid.New()}, &models.Post{ID: uuid.New()})
	repo.countFn = func(context.Context, listing.Filter) (int64, error) { return 42, nil }

	page, err := NewPostService(repo).ListPosts(ctx, listing.Build(listing.Params{}))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, int64(42), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)

	repo.countFn = func(context.Context, listing.Filter) (int64, error) {
		return 0, models.NewInternalError(errors.New("boom"))
	}
	_, err = NewPostService(repo).ListPosts(ctx, listing.Build(listing.Params{}))
	assertAppError(t, err, models.CodeInternal, "")
}

func TestPostService_SetPublished(t *testing.T) {
	ctx := context.Background()
	post := &models.Post{ID: uuid.New(), Published: false}
	svc := NewPostService(memoryPostRepo(post))

	got, err := svc.SetPublished(ctx, post, true)
	require.NoError(t, err)
	assert.True(t, got.Published)
}

func TestNewSlug(t *testing.T) {
	assert.True(t, strings.HasPrefix(newSlug("!!!"), "post-"))
	long := newSlug(strings.Repeat("word ", 40))
	assert.LessOrEqual(t, len(long), 80+1+8)
}
