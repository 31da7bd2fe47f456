// Package service provides application business logic.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"dreamscope/internal/llm"
	"dreamscope/internal/middleware"
	"dreamscope/internal/models"
	"dreamscope/internal/observability"
	"dreamscope/internal/repository"
)

const (
	defaultMemoryContextSize = 5
	memorySnippetMaxLen      = 120
)

// DreamService runs the interpretation pipeline: gather memory context,
// call the generation provider, persist the enriched entry.
type DreamService struct {
	dreamRepo   repository.DreamRepository
	tagRepo     repository.TagRepository
	interpreter llm.Interpreter
	memorySize  int
}

// NewDreamService returns a new DreamService.
func NewDreamService(
	dreamRepo repository.DreamRepository,
	tagRepo repository.TagRepository,
	interpreter llm.Interpreter,
	memorySize int,
) *DreamService {
	if memorySize <= 0 {
		memorySize = defaultMemoryContextSize
	}
	return &DreamService{
		dreamRepo:   dreamRepo,
		tagRepo:     tagRepo,
		interpreter: interpreter,
		memorySize:  memorySize,
	}
}

// Create interprets and persists a dream. The three stages run in order and
// the dream is only written after a successful interpretation; a generation
// failure surfaces as InterpretationFailed and leaves no partial rows behind.
func (s *DreamService) Create(ctx context.Context, userID uint, content string) (*models.Dream, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("dream content must not be empty")
	}

	timer := time.Now()

	memoryContext, err := s.buildMemoryContext(ctx, userID)
	if err != nil {
		observability.InterpretationFailures.WithLabelValues("memory_context").Inc()
		return nil, err
	}

	knownTags, err := s.knownTagNames(ctx)
	if err != nil {
		observability.InterpretationFailures.WithLabelValues("memory_context").Inc()
		return nil, err
	}

	interpretation, err := s.interpreter.Interpret(ctx, llm.Request{
		Content:       content,
		MemoryContext: memoryContext,
		KnownTags:     knownTags,
	})
	if err != nil {
		observability.InterpretationFailures.WithLabelValues("generation").Inc()
		observability.GenerationRequests.WithLabelValues("failure").Inc()
		middleware.Logger.ErrorContext(ctx, "Dream interpretation failed",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, models.NewInterpretationError(err)
	}
	observability.GenerationRequests.WithLabelValues("success").Inc()

	tags := make([]repository.TagInput, 0, len(interpretation.Tags))
	for _, suggestion := range interpretation.Tags {
		tags = append(tags, repository.TagInput{
			Name:        suggestion.Name,
			Description: suggestion.Description,
		})
	}

	dream := &models.Dream{
		UserID:   userID,
		Content:  content,
		Summary:  interpretation.Summary,
		Analysis: interpretation.Analysis,
	}
	if err := s.dreamRepo.CreateWithTags(ctx, dream, tags); err != nil {
		observability.InterpretationFailures.WithLabelValues("persistence").Inc()
		return nil, err
	}

	observability.InterpretationDuration.Observe(time.Since(timer).Seconds())

	// Re-read with associations so the response carries canonical tag rows.
	return s.dreamRepo.GetByID(ctx, dream.ID)
}

// buildMemoryContext renders the caller's most recent dreams newest first,
// one line per dream: "[YYYY-MM-DD] summary". Dreams without a summary fall
// back to truncated content. Returns "" for first-time dreamers.
func (s *DreamService) buildMemoryContext(ctx context.Context, userID uint) (string, error) {
	recent, err := s.dreamRepo.ListRecentByUser(ctx, userID, s.memorySize)
	if err != nil {
		return "", err
	}
	if len(recent) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(recent))
	for _, d := range recent {
		snippet := d.Summary
		if snippet == "" {
			snippet = truncateRunes(d.Content, memorySnippetMaxLen)
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", d.CreatedAt.Format("2006-01-02"), snippet))
	}
	return strings.Join(lines, "\n"), nil
}

// truncateRunes cuts s to at most max runes, never splitting a multi-byte
// character.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func (s *DreamService) knownTagNames(ctx context.Context) ([]string, error) {
	tags, err := s.tagRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names, nil
}
