package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const searchResultLimit = 50

// SearchDreams performs a case-insensitive substring search over dream
// content, summaries and tag names. An empty query returns an empty list.
func (s *Server) SearchDreams(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))

	dreams, err := s.dreamRepo.Search(c.UserContext(), query, searchResultLimit)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"query":   query,
		"dreams":  serializeDreams(dreams),
		"results": len(dreams),
	})
}
