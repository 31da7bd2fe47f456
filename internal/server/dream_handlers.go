package server

import (
	"strconv"
	"strings"

	"dreamscope/internal/models"
	"dreamscope/internal/repository"

	"github.com/gofiber/fiber/v2"
)

type createDreamRequest struct {
	Content string `json:"content"`
}

// CreateDream runs the interpretation pipeline for a new journal entry.
func (s *Server) CreateDream(c *fiber.Ctx) error {
	var req createDreamRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := c.Locals("userID").(uint)
	dream, err := s.dreamService.Create(c.UserContext(), userID, req.Content)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(serializeDream(dream))
}

// GetDreams returns a page of the public dream feed, optionally filtered by
// tags (comma-separated, any-match). The unpaginated filtered total goes out
// in the X-Total-Count header; the matched tag objects ride along so the
// client can render active filters.
func (s *Server) GetDreams(c *fiber.Ctx) error {
	p := parsePagination(c)

	var tagNames []string
	if raw := c.Query("tags"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				tagNames = append(tagNames, trimmed)
			}
		}
	}

	dreams, total, err := s.dreamRepo.List(c.UserContext(), repository.ListOptions{
		Tags:  tagNames,
		Page:  p.Page,
		Limit: p.Limit,
	})
	if err != nil {
		return respondAppError(c, err)
	}

	selectedTags, err := s.tagRepo.ListByNames(c.UserContext(), tagNames)
	if err != nil {
		return respondAppError(c, err)
	}

	c.Set("X-Total-Count", strconv.FormatInt(total, 10))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"dreams":        serializeDreams(dreams),
		"selected_tags": serializeTags(selectedTags),
		"page":          p.Page,
		"limit":         p.Limit,
		"total":         total,
	})
}

// GetDream returns a single dream with its tags and author.
func (s *Server) GetDream(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	dream, err := s.dreamRepo.GetByID(c.UserContext(), id)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(serializeDream(dream))
}
