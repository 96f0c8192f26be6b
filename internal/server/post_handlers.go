package server

import (
	"dreamcore/internal/events"
	"dreamcore/internal/middleware"
	"dreamcore/internal/models"
	"dreamcore/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/games/:id/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	gameID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		MediaRef string `json:"media_ref"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		UserID:   userID,
		GameID:   gameID,
		Content:  req.Content,
		MediaRef: req.MediaRef,
	})
	if err != nil {
		return models.RespondAppError(c, err)
	}

	s.publishFeed(c.Context(), events.EventPostCreated, gameID, post.ID, post)

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), postID, optionalUserID(c))
	if err != nil {
		return models.RespondAppError(c, err)
	}

	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	// Resolve the owning game up front; the feed event needs it after the
	// post row is gone.
	post, err := s.postService.GetPost(c.Context(), postID, 0)
	if err != nil {
		return models.RespondAppError(c, err)
	}

	if err := s.postService.DeletePost(c.Context(), userID, postID); err != nil {
		return models.RespondAppError(c, err)
	}

	s.publishFeed(c.Context(), events.EventPostDeleted, post.GameID, postID, nil)

	return c.JSON(fiber.Map{
		"message": "Post deleted successfully",
	})
}

// ToggleLike handles POST /api/posts/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), postID, 0)
	if err != nil {
		return models.RespondAppError(c, err)
	}

	state, err := s.postService.ToggleLike(c.Context(), userID, postID)
	if err != nil {
		middleware.LikeToggles.WithLabelValues("error").Inc()
		return models.RespondAppError(c, err)
	}

	outcome := "unliked"
	if state.Liked {
		outcome = "liked"
	}
	middleware.LikeToggles.WithLabelValues(outcome).Inc()

	s.publishFeed(c.Context(), events.EventLikeToggled, post.GameID, postID, state)

	return c.JSON(state)
}
