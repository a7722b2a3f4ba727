package server

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"quill/internal/listing"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"
)

const msgInvalidPostID = "Invalid post ID"

// ListPosts handles GET /api/posts
// @Summary List posts
// @Description List posts newest first with pagination and filters
// @Tags posts
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (1-100, default 10)"
// @Param category query string false "Category id"
// @Param published query string false "\"true\" for published posts only"
// @Param search query string false "Case-insensitive title/content search"
// @Success 200 {object} object{count=int,total=int,page=int,limit=int,posts=[]models.Post}
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	q := listing.Build(listing.ParamsFromQuery(c))

	page, err := s.postService.ListPosts(c.UserContext(), q)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(page)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Description Get a post and record the view
// @Tags posts
// @Produce json
// @Param id path string true "Post id"
// @Success 200 {object} object{post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id", msgInvalidPostID)
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,content=string,category=string,tags=[]string,published=bool} true "Post"
// @Success 201 {object} object{message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title     string   `json:"title"`
		Content   string   `json:"content"`
		Category  *string  `json:"category"`
		Tags      []string `json:"tags"`
		Published bool     `json:"published"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msgInvalidBody))
	}

	post, err := s.postService.CreatePost(c.UserContext(), actorFrom(c), service.CreatePostInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.Category,
		Tags:       req.Tags,
		Published:  req.Published,
	})
	if err != nil {
		return respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created successfully",
		"post":    post,
	})
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a post
// @Description Only the author or an administrator may update a post. A null or empty category clears it.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post id"
// @Param request body object{title=string,content=string,category=string,tags=[]string,published=bool} true "Fields to change"
// @Success 200 {object} object{message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id", msgInvalidPostID)
	if err != nil {
		return nil
	}

	var req struct {
		Title     *string         `json:"title"`
		Content   *string         `json:"content"`
		Category  json.RawMessage `json:"category"`
		Tags      *[]string       `json:"tags"`
		Published *bool           `json:"published"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msgInvalidBody))
	}
	category, err := optionalCategory(req.Category)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("category must be a string or null"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), actorFrom(c), id, service.UpdatePostInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: category,
		Tags:       req.Tags,
		Published:  req.Published,
	})
	if err != nil {
		return respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post updated successfully",
		"post":    post,
	})
}

// optionalCategory maps an absent category to nil and an explicit null to
// the empty string, which clears it.
func optionalCategory(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if string(raw) == "null" {
		empty := ""
		return &empty, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return &value, nil
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Description Only the author or an administrator may delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post id"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id", msgInvalidPostID)
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), actorFrom(c), id); err != nil {
		return respond(c, err)
	}

	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// loadPost attaches the post named by :id for the ownership gate.
func (s *Server) loadPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id", msgInvalidPostID)
	if err != nil {
		return nil
	}

	post, err := s.postService.LoadPost(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}

	middleware.AttachResource(c, post)
	return c.Next()
}

// PublishPost handles PATCH /api/posts/:id/publish
// @Summary Publish or unpublish a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post id"
// @Param request body object{published=bool} true "Publication state"
// @Success 200 {object} object{message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/publish [patch]
func (s *Server) PublishPost(c *fiber.Ctx) error {
	resource, _ := middleware.ResourceFrom(c)
	post, ok := resource.(*models.Post)
	if !ok {
		return respond(c, models.NewInternalError(nil))
	}

	var req struct {
		Published *bool `json:"published"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(msgInvalidBody))
	}
	if req.Published == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("published is required"))
	}

	post, err := s.postService.SetPublished(c.UserContext(), post, *req.Published)
	if err != nil {
		return respond(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post updated successfully",
		"post":    post,
	})
}
