package server

import (
	"strings"

	"dreamscope/internal/models"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Content string `json:"content"`
}

func (r *commentRequest) validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return models.NewValidationError("Comment content must not be empty")
	}
	return nil
}

// GetComments lists all comments of a dream oldest first; the client rebuilds
// threading from parent_id.
func (s *Server) GetComments(c *fiber.Ctx) error {
	dreamID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	// Ensure the dream exists so an unknown id is 404 rather than an empty list.
	if _, err := s.dreamRepo.GetByID(c.UserContext(), dreamID); err != nil {
		return respondAppError(c, err)
	}

	comments, err := s.commentRepo.ListByDream(c.UserContext(), dreamID)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(serializeComments(comments))
}

// CreateComment adds a top-level comment to a dream.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	return s.createComment(c, nil)
}

// ReplyToComment adds a reply under an existing comment of the same dream.
func (s *Server) ReplyToComment(c *fiber.Ctx) error {
	parentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	return s.createComment(c, &parentID)
}

func (s *Server) createComment(c *fiber.Ctx, parentID *uint) error {
	dreamID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := req.validate(); err != nil {
		return respondAppError(c, err)
	}

	if _, err := s.dreamRepo.GetByID(c.UserContext(), dreamID); err != nil {
		return respondAppError(c, err)
	}

	user := s.currentUser(c)
	comment := &models.Comment{
		DreamID:  dreamID,
		UserID:   user.ID,
		ParentID: parentID,
		Content:  strings.TrimSpace(req.Content),
	}
	if err := s.commentRepo.Create(c.UserContext(), comment); err != nil {
		return respondAppError(c, err)
	}
	comment.User = *user

	return c.Status(fiber.StatusCreated).JSON(serializeComment(comment))
}

// UpdateComment replaces a comment's content. Only the author may edit.
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	dreamID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := req.validate(); err != nil {
		return respondAppError(c, err)
	}

	existing, err := s.commentRepo.GetByID(c.UserContext(), dreamID, commentID)
	if err != nil {
		return respondAppError(c, err)
	}

	userID := c.Locals("userID").(uint)
	if existing.UserID != userID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewValidationError("You can only edit your own comments"))
	}

	updated, err := s.commentRepo.UpdateContent(c.UserContext(), dreamID, commentID, strings.TrimSpace(req.Content))
	if err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(serializeComment(updated))
}

// DeleteComment removes a comment and its whole reply subtree.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	dreamID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	existing, err := s.commentRepo.GetByID(c.UserContext(), dreamID, commentID)
	if err != nil {
		return respondAppError(c, err)
	}

	userID := c.Locals("userID").(uint)
	if existing.UserID != userID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewValidationError("You can only delete your own comments"))
	}

	if err := s.commentRepo.Delete(c.UserContext(), dreamID, commentID); err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Comment deleted",
	})
}
