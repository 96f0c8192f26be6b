package server

import (
	"io"

	"dreamcore/internal/media"
	"dreamcore/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/media. The uploaded image is validated,
// re-encoded, and stored; the returned ref goes into a post's media_ref.
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Missing file field"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unreadable upload"))
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	asset, err := s.mediaStore.Save(c.Context(), media.SaveInput{
		UserID:      userID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return models.RespondAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(asset)
}

// ServeMedia handles GET /media/:ref
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	path, err := s.mediaStore.Resolve(c.Params("ref"))
	if err != nil {
		return models.RespondAppError(c, err)
	}

	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.SendFile(path)
}
