package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"contrato-firma/internal/config"
	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/infrastructure/database"
	"contrato-firma/internal/infrastructure/redis"
)

// Pinger is a dependency whose reachability is reported by the health check
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	name    string
	checks  map[string]Pinger
	timeout time.Duration
}

func NewHealthHandler(cfg *config.Config, db *database.Database, redisClient *redis.RedisClient) *HealthHandler {
	return newHealthHandler(cfg.App.Name, map[string]Pinger{
		"database": db,
		"redis":    redisClient,
	})
}

func newHealthHandler(name string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		name:    name,
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Service    string            `json:"service"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health godoc
// @Summary Health check
// @Description Check if the service and its stores are reachable
// @Tags health
// @Produce json
// @Success 200 {object} entity.APIResponse
// @Failure 503 {object} entity.APIResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:     "healthy",
		Service:    h.name,
		Timestamp:  time.Now(),
		Components: make(map[string]string, len(h.checks)),
	}

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Components[name] = err.Error()
			continue
		}
		resp.Components[name] = "ok"
	}

	if resp.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(&entity.APIResponse{
			Success: false,
			Message: "Service is degraded",
			Data:    resp,
		})
	}

	return c.JSON(entity.NewSuccessResponse(resp, "Service is healthy"))
}
