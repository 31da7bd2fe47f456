package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// GetTags returns the full tag vocabulary as a sorted list of names.
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.tagRepo.ListAll(c.UserContext())
	if err != nil {
		return respondAppError(c, err)
	}

	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"tags": names,
	})
}

// GetTagsMeta returns full tag objects for the requested comma-separated
// names. Unknown names are skipped.
func (s *Server) GetTagsMeta(c *fiber.Ctx) error {
	var names []string
	if raw := c.Query("names"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				names = append(names, trimmed)
			}
		}
	}

	tags, err := s.tagRepo.ListByNames(c.UserContext(), names)
	if err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"tags": serializeTags(tags),
	})
}
