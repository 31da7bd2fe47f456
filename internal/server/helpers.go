package server

import (
	"errors"
	"strings"
	"time"

	"dreamscope/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed page/limit query parameters.
type Pagination struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit   = 10
	maxPaginationLimit = 100
)

// parsePagination extracts page and limit query parameters.
func parsePagination(c *fiber.Ctx) Pagination {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	limit := c.QueryInt("limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	return Pagination{Page: page, Limit: limit}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		return strings.ToLower(param[:len(param)-2]) + " ID"
	}
	return param
}

// respondAppError maps an application error to the matching HTTP status.
func respondAppError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeNotFound:
			return models.RespondWithError(c, fiber.StatusNotFound, appErr)
		case models.CodeValidation:
			return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
		case models.CodeUnauthenticated:
			return models.RespondWithError(c, fiber.StatusUnauthorized, appErr)
		case models.CodeUpstream:
			return models.RespondWithError(c, fiber.StatusBadGateway, appErr)
		case models.CodeInterpretationFailed:
			return models.RespondWithError(c, fiber.StatusInternalServerError, appErr)
		}
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}

// authorResponse is the embedded author shape of dreams and comments.
type authorResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type tagResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type dreamResponse struct {
	ID        uint           `json:"id"`
	UserID    uint           `json:"user_id"`
	Content   string         `json:"content"`
	Summary   string         `json:"summary"`
	Analysis  string         `json:"analysis"`
	Tags      []tagResponse  `json:"tags"`
	Author    authorResponse `json:"author"`
	CreatedAt time.Time      `json:"created_at"`
}

type commentResponse struct {
	ID        uint           `json:"id"`
	DreamID   uint           `json:"dream_id"`
	UserID    uint           `json:"user_id"`
	ParentID  *uint          `json:"parent_id"`
	Content   string         `json:"content"`
	Author    authorResponse `json:"author"`
	CreatedAt time.Time      `json:"created_at"`
}

func serializeAuthor(user *models.User) authorResponse {
	return authorResponse{
		ID:        user.ID,
		Name:      user.Name(),
		AvatarURL: user.Picture,
	}
}

func serializeTags(tags []models.Tag) []tagResponse {
	out := make([]tagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tagResponse{ID: tag.ID, Name: tag.Name, Description: tag.Description})
	}
	return out
}

func serializeDream(dream *models.Dream) dreamResponse {
	return dreamResponse{
		ID:        dream.ID,
		UserID:    dream.UserID,
		Content:   dream.Content,
		Summary:   dream.Summary,
		Analysis:  dream.Analysis,
		Tags:      serializeTags(dream.Tags),
		Author:    serializeAuthor(&dream.User),
		CreatedAt: dream.CreatedAt,
	}
}

func serializeDreams(dreams []models.Dream) []dreamResponse {
	out := make([]dreamResponse, 0, len(dreams))
	for i := range dreams {
		out = append(out, serializeDream(&dreams[i]))
	}
	return out
}

func serializeComment(comment *models.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		DreamID:   comment.DreamID,
		UserID:    comment.UserID,
		ParentID:  comment.ParentID,
		Content:   comment.Content,
		Author:    serializeAuthor(&comment.User),
		CreatedAt: comment.CreatedAt,
	}
}

func serializeComments(comments []models.Comment) []commentResponse {
	out := make([]commentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, serializeComment(&comments[i]))
	}
	return out
}
