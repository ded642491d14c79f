package handler

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bugtracker/server/internal/middleware"
	"github.com/bugtracker/server/internal/models"
	"github.com/bugtracker/server/internal/service"
)

// AIHandler wires HTTP → analysis, search and embedding services.
type AIHandler struct {
	analysis   service.AnalysisService
	search     service.SearchService
	embeddings service.EmbeddingService
	production bool
	log        *slog.Logger
}

// NewAIHandler creates an AIHandler. production hides error details.
func NewAIHandler(analysis service.AnalysisService, search service.SearchService, embeddings service.EmbeddingService, production bool) *AIHandler {
	return &AIHandler{
		analysis:   analysis,
		search:     search,
		embeddings: embeddings,
		production: production,
		log:        slog.Default().With("component", "ai_handler"),
	}
}

// Register mounts the AI routes on an authenticated router group.
func (h *AIHandler) Register(r fiber.Router) {
	r.Post("/ai-analyze", h.analyze)
	r.Post("/ai-search", h.searchBugs)
	r.Post("/ai/backfill-embeddings", h.backfill)
	r.Get("/ai/embedding-stats", h.stats)
}

// analyze handles POST /ai-analyze
func (h *AIHandler) analyze(c *fiber.Ctx) error {
	var req models.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Description) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "description is required")
	}

	res, err := h.analysis.Analyze(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		if fe, ok := clientError(err); ok {
			return fe
		}
		h.log.Error("analyze failed", "request_id", middleware.RequestID(c), "error", err)
		return failure(c, h.production, "Failed to analyze bug", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    res,
	})
}

// searchBugs handles POST /ai-search
func (h *AIHandler) searchBugs(c *fiber.Ctx) error {
	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query is required")
	}

	res, err := h.search.SearchWithAI(c.UserContext(), middleware.UserID(c), req.Query)
	if err != nil {
		if fe, ok := clientError(err); ok {
			return fe
		}
		h.log.Error("search failed", "request_id", middleware.RequestID(c), "error", err)
		return failure(c, h.production, "Failed to perform search", err)
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"data":           res.Results,
		"metadata":       res.Metadata,
		"searchInsights": res.Insights,
	})
}

// backfill handles POST /ai/backfill-embeddings
func (h *AIHandler) backfill(c *fiber.Ctx) error {
	summary, err := h.embeddings.Backfill(c.UserContext(), middleware.UserID(c))
	if err != nil {
		h.log.Error("backfill failed", "request_id", middleware.RequestID(c), "error", err)
		return failure(c, h.production, "Failed to backfill embeddings", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    summary,
	})
}

// stats handles GET /ai/embedding-stats
func (h *AIHandler) stats(c *fiber.Ctx) error {
	st, err := h.embeddings.Stats(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    st,
	})
}
