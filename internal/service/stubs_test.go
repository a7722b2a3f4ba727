package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/internal/auth"
	"quill/internal/listing"
	"quill/internal/models"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	getByIDFn        func(context.Context, uuid.UUID) (*models.Post, error)
	listFn           func(context.Context, listing.Query) ([]models.Post, error)
	countFn          func(context.Context, listing.Filter) (int64, error)
	createFn         func(context.Context, *models.Post) error
	updateFn         func(context.Context, *models.Post) error
	deleteFn         func(context.Context, uuid.UUID) error
	incrementViewsFn func(context.Context, uuid.UUID) error
}

func (s *postRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, q listing.Query) ([]models.Post, error) {
	return s.listFn(ctx, q)
}
func (s *postRepoStub) Count(ctx context.Context, f listing.Filter) (int64, error) {
	return s.countFn(ctx, f)
}
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return s.incrementViewsFn(ctx, id)
}

// memoryPostRepo returns a stub backed by a map so reads observe writes.
func memoryPostRepo(posts ...*models.Post) *postRepoStub {
	store := make(map[uuid.UUID]*models.Post, len(posts))
	for _, p := range posts {
		store[p.ID] = p
	}
	get := func(_ context.Context, id uuid.UUID) (*models.Post, error) {
		p, ok := store[id]
		if !ok {
			return nil, models.NewNotFoundError("Post not found")
		}
		cp := *p
		return &cp, nil
	}
	return &postRepoStub{
		getByIDFn: get,
		listFn: func(_ context.Context, _ listing.Query) ([]models.Post, error) {
			out := make([]models.Post, 0, len(store))
			for _, p := range store {
				out = append(out, *p)
			}
			return out, nil
		},
		countFn: func(_ context.Context, _ listing.Filter) (int64, error) { return int64(len(store)), nil },
		createFn: func(_ context.Context, p *models.Post) error {
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			cp := *p
			store[p.ID] = &cp
			return nil
		},
		updateFn: func(_ context.Context, p *models.Post) error {
			cp := *p
			store[p.ID] = &cp
			return nil
		},
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			delete(store, id)
			return nil
		},
		incrementViewsFn: func(_ context.Context, id uuid.UUID) error {
			if p, ok := store[id]; ok {
				p.Views++
				return nil
			}
			return models.NewNotFoundError("Post not found")
		},
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn              func(context.Context, uuid.UUID) (*models.User, error)
	getByEmailFn           func(context.Context, string) (*models.User, error)
	getByEmailOrUsernameFn func(context.Context, string, string) (*models.User, error)
	createFn               func(context.Context, *models.User) error
	updateRoleFn           func(context.Context, uuid.UUID, models.Role) (*models.User, error)
	listFn                 func(context.Context) ([]models.User, error)
	listByRoleFn           func(context.Context, models.Role) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	return s.getByEmailOrUsernameFn(ctx, email, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	return s.updateRoleFn(ctx, id, role)
}
func (s *userRepoStub) List(ctx context.Context) ([]models.User, error) {
	return s.listFn(ctx)
}
func (s *userRepoStub) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.listByRoleFn(ctx, role)
}

// memoryUserRepo returns a stub backed by a slice.
func memoryUserRepo() *userRepoStub {
	var users []*models.User
	find := func(match func(*models.User) bool) *models.User {
		for _, u := range users {
			if match(u) {
				cp := *u
				return &cp
			}
		}
		return nil
	}
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.User, error) {
			if u := find(func(u *models.User) bool { return u.ID == id }); u != nil {
				return u, nil
			}
			return nil, models.NewNotFoundError("User not found")
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return find(func(u *models.User) bool { return u.Email == email }), nil
		},
		getByEmailOrUsernameFn: func(_ context.Context, email, username string) (*models.User, error) {
			return find(func(u *models.User) bool { return u.Email == email || u.Username == username }), nil
		},
		createFn: func(_ context.Context, u *models.User) error {
			if u.ID == uuid.Nil {
				u.ID = uuid.New()
			}
			cp := *u
			users = append(users, &cp)
			return nil
		},
		updateRoleFn: func(_ context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
			for _, u := range users {
				if u.ID == id {
					u.Role = role
					cp := *u
					return &cp, nil
				}
			}
			return nil, models.NewNotFoundError("User not found")
		},
		listFn: func(_ context.Context) ([]models.User, error) {
			out := make([]models.User, 0, len(users))
			for i := len(users) - 1; i >= 0; i-- {
				out = append(out, *users[i])
			}
			return out, nil
		},
		listByRoleFn: func(_ context.Context, role models.Role) ([]models.User, error) {
			var out []models.User
			for _, u := range users {
				if u.Role == role {
					out = append(out, *u)
				}
			}
			return out, nil
		},
	}
}

type tokenIssuerStub struct {
	issued []auth.Identity
	err    error
}

func (s *tokenIssuerStub) Issue(identity auth.Identity) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.issued = append(s.issued, identity)
	return "token-for-" + identity.ID, nil
}

// assertAppError asserts that err is an AppError with the given code and message.
func assertAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}
