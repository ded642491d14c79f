package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type HealthHandler struct {
	db             Pinger
	embeddingModel string
}

func NewHealthHandler(db Pinger, embeddingModel string) *HealthHandler {
	return &HealthHandler{
		db:             db,
		embeddingModel: embeddingModel,
	}
}

func (h *HealthHandler) Register(r fiber.Router) {
	r.Get("/health", h.health)
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	db := h.checkDB(c.UserContext())
	status := fiber.Map{
		"status":    "ok",
		"db":        db,
		"embedding": fiber.Map{"model": h.embeddingModel},
	}
	if db != "connected" {
		status["status"] = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}

func (h *HealthHandler) checkDB(ctx context.Context) string {
	if h.db == nil {
		return "not_configured"
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx, nil); err != nil {
		return "error"
	}
	return "connected"
}

var _ Pinger = (*mongo.Client)(nil)
