// Package middleware provides the request pipeline: authentication, role and
// ownership gates, rate limiting, logging and tracing.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"quill/internal/auth"
	"quill/internal/models"
	"quill/internal/observability"
)

// Messages returned by the access gates.
const (
	MsgTokenRequired     = "Authentication required. Please provide a valid token."
	MsgTokenInvalid      = "Invalid or expired token. Please login again."
	MsgUserNotFound      = "User not found. Token may be invalid."
	MsgAuthRequired      = "Authentication required"
	MsgInsufficientRole  = "Access denied. Insufficient permissions."
	MsgNotResourceOwner  = "Access denied. You can only modify your own resources."
	bearerPrefix         = "Bearer "
	defaultOwnershipPath = models.DefaultOwnerField
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserLoader re-loads the user a token was issued for.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Caller is the authenticated user for the current request. Role is live:
// it is re-loaded from the user record on each request, not read from the token.
type Caller struct {
	ID       string
	Username string
	Email    string
	Role     models.Role
}

// NewCaller snapshots user. The password hash is not carried.
func NewCaller(user *models.User) Caller {
	return Caller{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}

// UUID returns the caller id in parsed form.
func (c Caller) UUID() uuid.UUID {
	id, _ := uuid.Parse(c.ID)
	return id
}

type callerKey struct{}

type resourceKey struct{}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	ctx = context.WithValue(ctx, callerKey{}, caller)
	return context.WithValue(ctx, UserIDKey, caller.ID)
}

// CallerFromContext returns the caller attached by Authenticate.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok
}

// CallerFrom returns the caller attached to the request.
func CallerFrom(c *fiber.Ctx) (Caller, bool) {
	return CallerFromContext(c.UserContext())
}

// AttachResource makes a loaded resource available to CheckOwnership.
func AttachResource(c *fiber.Ctx, resource models.Owned) {
	c.SetUserContext(context.WithValue(c.UserContext(), resourceKey{}, resource))
}

// ResourceFrom returns the resource attached with AttachResource.
func ResourceFrom(c *fiber.Ctx) (models.Owned, bool) {
	resource, ok := c.UserContext().Value(resourceKey{}).(models.Owned)
	return resource, ok && resource != nil
}

func reject(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(models.ErrorResponse{Error: message})
}

// Authenticate verifies the bearer token, re-loads the user it names and
// attaches the caller to the request context.
func Authenticate(tokens TokenVerifier, users UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, bearerPrefix) {
			observability.AuthFailures.WithLabelValues("missing_token").Inc()
			return reject(c, fiber.StatusUnauthorized, MsgTokenRequired)
		}

		claims, err := tokens.Verify(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			reason := auth.Reason(err)
			observability.AuthFailures.WithLabelValues(reason).Inc()
			Logger.WarnContext(ctx, "token rejected",
				slog.String("reason", reason),
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return reject(c, fiber.StatusUnauthorized, MsgTokenInvalid)
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			observability.AuthFailures.WithLabelValues("invalid_subject").Inc()
			Logger.WarnContext(ctx, "token subject is not a user id", slog.String("subject", claims.Subject))
			return reject(c, fiber.StatusUnauthorized, MsgTokenInvalid)
		}

		user, err := users.GetByID(ctx, userID)
		if err != nil {
			if models.IsNotFound(err) {
				observability.AuthFailures.WithLabelValues("user_not_found").Inc()
				Logger.WarnContext(ctx, "token names a missing user", slog.String("user_id", userID.String()))
				return reject(c, fiber.StatusUnauthorized, MsgUserNotFound)
			}
			Logger.ErrorContext(ctx, "failed to load authenticated user",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}

		c.SetUserContext(WithCaller(ctx, NewCaller(user)))
		return c.Next()
	}
}

// Authorize admits callers whose role is exactly one of roles.
func Authorize(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return reject(c, fiber.StatusUnauthorized, MsgAuthRequired)
		}
		if _, ok := allowed[caller.Role]; !ok {
			observability.AccessDenied.WithLabelValues("role").Inc()
			Logger.InfoContext(c.UserContext(), "role check denied",
				slog.String("role", string(caller.Role)),
				slog.String("path", c.Path()),
			)
			return reject(c, fiber.StatusForbidden, MsgInsufficientRole)
		}
		return c.Next()
	}
}

var errNoResource = errors.New("no resource attached to request")

// CheckOwnership admits administrators and the owner of the attached
// resource. field names the owner reference and defaults to "author".
func CheckOwnership(field ...string) fiber.Handler {
	ownerField := defaultOwnershipPath
	if len(field) > 0 && field[0] != "" {
		ownerField = field[0]
	}

	return func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return reject(c, fiber.StatusUnauthorized, MsgAuthRequired)
		}

		if caller.Role.HasCapability(models.CapabilityModifyAnyResource) {
			return c.Next()
		}

		resource, ok := ResourceFrom(c)
		if !ok {
			Logger.ErrorContext(c.UserContext(), "ownership check misconfigured",
				slog.String("path", c.Path()),
				slog.String("error", errNoResource.Error()),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(errNoResource))
		}

		ownerID, ok := resource.OwnerRef(ownerField)
		if !ok {
			Logger.ErrorContext(c.UserContext(), "ownership check misconfigured",
				slog.String("path", c.Path()),
				slog.String("field", ownerField),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(errors.New("unknown owner field "+ownerField)))
		}

		if !models.CanModify(caller.Role, caller.ID, ownerID) {
			observability.AccessDenied.WithLabelValues("ownership").Inc()
			return reject(c, fiber.StatusForbidden, MsgNotResourceOwner)
		}
		return c.Next()
	}
}
