package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/bugtracker/server/internal/middleware"
	"github.com/bugtracker/server/internal/models"
	"github.com/bugtracker/server/internal/service"
)

// BugHandler wires HTTP → bug, embedding and report services.
type BugHandler struct {
	bugs       service.BugService
	embeddings service.EmbeddingService
	reports    service.ReportService
}

// NewBugHandler creates a BugHandler instance.
func NewBugHandler(bugs service.BugService, embeddings service.EmbeddingService, reports service.ReportService) *BugHandler {
	return &BugHandler{bugs: bugs, embeddings: embeddings, reports: reports}
}

// Register mounts the bug routes on an authenticated router group.
func (h *BugHandler) Register(r fiber.Router) {
	r.Post("/bugs", h.create)
	r.Get("/bugs", h.list)
	r.Get("/bugs/:id", h.get)
	r.Post("/bugs/:id/embedding", h.regenerateEmbedding)
	r.Get("/bugs/:id/report", h.report)
}

// create handles POST /bugs
func (h *BugHandler) create(c *fiber.Ctx) error {
	var req models.CreateBugRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	bug, err := h.bugs.Create(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    bug,
	})
}

// list handles GET /bugs?limit=50
func (h *BugHandler) list(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
	}

	bugs, err := h.bugs.List(c.UserContext(), middleware.UserID(c), limit)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    bugs,
	})
}

// get handles GET /bugs/:id
func (h *BugHandler) get(c *fiber.Ctx) error {
	bug, err := h.bugs.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    bug,
	})
}

// regenerateEmbedding handles POST /bugs/:id/embedding
func (h *BugHandler) regenerateEmbedding(c *fiber.Ctx) error {
	bug, err := h.embeddings.Regenerate(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if errors.Is(err, service.ErrEmbeddingUnavailable) {
		return fiber.NewError(fiber.StatusBadGateway, "embedding provider unavailable")
	}
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":                 bug.ID.Hex(),
			"dimensions":         len(bug.Embedding),
			"embeddingUpdatedAt": bug.EmbeddingUpdatedAt,
		},
	})
}

// report handles GET /bugs/:id/report?refresh=true
func (h *BugHandler) report(c *fiber.Ctx) error {
	rep, err := h.reports.GetReport(c.UserContext(), middleware.UserID(c), c.Params("id"), c.QueryBool("refresh"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    rep,
	})
}

func mapError(err error) error {
	if fe, ok := clientError(err); ok {
		return fe
	}
	return err
}
