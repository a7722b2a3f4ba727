package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quill/internal/auth"
	"quill/internal/models"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type MockUserLoader struct {
	mock.Mock
}

func (m *MockUserLoader) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type ownedStub struct {
	owner string
}

func (o ownedStub) OwnerRef(field string) (string, bool) {
	if field != models.DefaultOwnerField {
		return "", false
	}
	return o.owner, true
}

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	return tokens
}

func tokenFor(t *testing.T, tokens *auth.TokenService, u *models.User) string {
	t.Helper()
	tok, err := tokens.Issue(auth.Identity{ID: u.ID.String(), Username: u.Username, Email: u.Email, Role: u.Role})
	require.NoError(t, err)
	return tok
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out, 1, "error bodies carry only the message")
	msg, _ := out["error"].(string)
	return msg
}

func TestAuthenticate(t *testing.T) {
	tokens := newTokens(t)
	alice := &models.User{ID: uuid.New(), Username: "alice", Email: "a@x.io", Role: models.RoleUser}
	ghost := &models.User{ID: uuid.New(), Username: "ghost", Email: "g@x.io", Role: models.RoleUser}
	broken := &models.User{ID: uuid.New(), Username: "broken", Email: "b@x.io", Role: models.RoleUser}

	loader := new(MockUserLoader)
	loader.On("GetByID", mock.Anything, alice.ID).Return(alice, nil)
	loader.On("GetByID", mock.Anything, ghost.ID).Return(nil, models.NewNotFoundError("User not found"))
	loader.On("GetByID", mock.Anything, broken.ID).Return(nil, errors.New("connection refused"))

	app := fiber.New()
	app.Get("/test", Authenticate(tokens, loader), func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"id": caller.ID, "role": caller.Role})
	})

	expired, err := auth.NewTokenService(testSecret, time.Hour,
		auth.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedError  string
	}{
		{"happy path", "Bearer " + tokenFor(t, tokens, alice), http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, MsgTokenRequired},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, MsgTokenRequired},
		{"lowercase scheme", "bearer " + tokenFor(t, tokens, alice), http.StatusUnauthorized, MsgTokenRequired},
		{"malformed token", "Bearer malformed.token.here", http.StatusUnauthorized, MsgTokenInvalid},
		{"expired token", "Bearer " + tokenFor(t, expired, alice), http.StatusUnauthorized, MsgTokenInvalid},
		{"deleted user", "Bearer " + tokenFor(t, tokens, ghost), http.StatusUnauthorized, MsgUserNotFound},
		{"storage failure", "Bearer " + tokenFor(t, tokens, broken), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, resp))
				return
			}

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, alice.ID.String(), body["id"])
			assert.Equal(t, "user", body["role"])
		})
	}
}

func TestAuthenticate_CallerReflectsCurrentRecord(t *testing.T) {
	tokens := newTokens(t)
	alice := &models.User{ID: uuid.New(), Username: "alice", Email: "a@x.io", Role: models.RoleUser}
	token := tokenFor(t, tokens, alice)

	renamed := *alice
	renamed.Username = "alice2"
	loader := new(MockUserLoader)
	loader.On("GetByID", mock.Anything, alice.ID).Return(&renamed, nil)

	app := fiber.New()
	app.Get("/me", Authenticate(tokens, loader), func(c *fiber.Ctx) error {
		caller, _ := CallerFrom(c)
		return c.SendString(caller.Username)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "alice2", string(body))
}

func withCaller(caller *Caller) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if caller != nil {
			c.SetUserContext(WithCaller(c.UserContext(), *caller))
		}
		return c.Next()
	}
}

func TestAuthorize(t *testing.T) {
	admin := &Caller{ID: uuid.NewString(), Role: models.RoleAdmin}
	user := &Caller{ID: uuid.NewString(), Role: models.RoleUser}

	tests := []struct {
		name           string
		caller         *Caller
		roles          []models.Role
		expectedStatus int
		expectedError  string
	}{
		{"no caller", nil, []models.Role{models.RoleAdmin}, http.StatusUnauthorized, MsgAuthRequired},
		{"admin allowed", admin, []models.Role{models.RoleAdmin}, http.StatusOK, ""},
		{"user denied", user, []models.Role{models.RoleAdmin}, http.StatusForbidden, MsgInsufficientRole},
		{"user allowed in set", user, []models.Role{models.RoleUser, models.RoleAdmin}, http.StatusOK, ""},
		{"exact match only", admin, []models.Role{models.RoleUser}, http.StatusForbidden, MsgInsufficientRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/admin", withCaller(tt.caller), Authorize(tt.roles...), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, resp))
			}
		})
	}
}

func TestCheckOwnership(t *testing.T) {
	ownerID := uuid.NewString()
	owner := &Caller{ID: ownerID, Role: models.RoleUser}
	stranger := &Caller{ID: uuid.NewString(), Role: models.RoleUser}
	admin := &Caller{ID: uuid.NewString(), Role: models.RoleAdmin}

	attach := func(resource models.Owned) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if resource != nil {
				AttachResource(c, resource)
			}
			return c.Next()
		}
	}

	tests := []struct {
		name           string
		caller         *Caller
		resource       models.Owned
		field          []string
		expectedStatus int
		expectedError  string
	}{
		{"no caller", nil, ownedStub{ownerID}, nil, http.StatusUnauthorized, MsgAuthRequired},
		{"owner proceeds", owner, ownedStub{ownerID}, nil, http.StatusOK, ""},
		{"explicit default field", owner, ownedStub{ownerID}, []string{"author"}, http.StatusOK, ""},
		{"stranger denied", stranger, ownedStub{ownerID}, nil, http.StatusForbidden, MsgNotResourceOwner},
		{"admin bypass", admin, ownedStub{ownerID}, nil, http.StatusOK, ""},
		{"missing resource", owner, nil, nil, http.StatusInternalServerError, "Internal server error"},
		{"unknown field", owner, ownedStub{ownerID}, []string{"editor"}, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Patch("/posts/:id", withCaller(tt.caller), attach(tt.resource), CheckOwnership(tt.field...), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodPatch, "/posts/1", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, resp))
			}
		})
	}
}

func TestCheckOwnership_PostResource(t *testing.T) {
	authorID := uuid.New()
	post := &models.Post{ID: uuid.New(), AuthorID: authorID}

	app := fiber.New()
	app.Patch("/posts/:id",
		withCaller(&Caller{ID: authorID.String(), Role: models.RoleUser}),
		func(c *fiber.Ctx) error {
			AttachResource(c, post)
			return c.Next()
		},
		CheckOwnership(),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) },
	)

	resp, err := app.Test(httptest.NewRequest(http.MethodPatch, "/posts/x", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCallerFromContext(t *testing.T) {
	_, ok := CallerFromContext(context.Background())
	assert.False(t, ok)

	caller := Caller{ID: "abc", Role: models.RoleUser}
	ctx := WithCaller(context.Background(), caller)
	got, ok := CallerFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, caller, got)
	assert.Equal(t, "abc", ctx.Value(UserIDKey))
}
