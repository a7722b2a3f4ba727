package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"
)

type userResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// Register handles POST /api/users/register
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Registration"
// @Success 201 {object} object{message=string,token=string,user=userResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msgInvalidBody))
	}

	result, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    newUserResponse(result.User),
		"token":   result.Token,
	})
}

// Login handles POST /api/users/login
// @Summary Log in
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} object{message=string,token=string,user=userResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msgInvalidBody))
	}

	result, err := s.userService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    newUserResponse(result.User),
		"token":   result.Token,
	})
}

// GetProfile handles GET /api/users/profile
// @Summary Current user profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{user=userResponse}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	caller, _ := middleware.CallerFrom(c)

	user, err := s.userService.GetUserByID(c.UserContext(), caller.UUID())
	if err != nil {
		return respond(c, err)
	}

	resp := newUserResponse(user)
	resp.CreatedAt = &user.CreatedAt
	return c.JSON(fiber.Map{"user": resp})
}

// ListUsers handles GET /api/users/users
// @Summary List users
// @Description Administrators only; newest first
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{count=int,users=[]models.User}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users/users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext())
	if err != nil {
		return respond(c, err)
	}

	return c.JSON(fiber.Map{
		"count": len(users),
		"users": users,
	})
}

// SetUserRole handles PUT /api/users/:id/role
// @Summary Change a user's role
// @Description Administrators only; an administrator cannot change their own role
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} object{message=string,user=userResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/role [put]
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "Invalid user ID")
	if err != nil {
		return nil
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msgInvalidBody))
	}

	user, err := s.userService.SetRole(c.UserContext(), actorFrom(c), id, req.Role)
	if err != nil {
		return respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User role updated successfully",
		"user":    newUserResponse(user),
	})
}
