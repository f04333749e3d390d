package handler

import (
	"github.com/gofiber/fiber/v2"

	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/infrastructure/repository"
)

const maxLogLimit = 200

type LogHandler struct {
	logRepo repository.APILogRepository
}

func NewLogHandler(logRepo repository.APILogRepository) *LogHandler {
	return &LogHandler{logRepo: logRepo}
}

// GetLogs returns the most recent outbound calls, optionally for one session
func (h *LogHandler) GetLogs(c *fiber.Ctx) error {
	if sessionID := c.Query("session_id"); sessionID != "" {
		logs, err := h.logRepo.FindBySession(c.UserContext(), sessionID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(
				entity.NewErrorResponse(entity.CodeInternal, err.Error()),
			)
		}
		return c.JSON(entity.NewSuccessResponse(logs, "Logs retrieved successfully"))
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > maxLogLimit {
		limit = maxLogLimit
	}

	logs, err := h.logRepo.FindAll(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(
			entity.NewErrorResponse(entity.CodeInternal, err.Error()),
		)
	}

	return c.JSON(entity.NewSuccessResponse(logs, "Logs retrieved successfully"))
}

// SearchLogs searches logs by endpoint
func (h *LogHandler) SearchLogs(c *fiber.Ctx) error {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.CodeBadRequest, "endpoint parameter required"),
		)
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > maxLogLimit {
		limit = maxLogLimit
	}

	logs, err := h.logRepo.FindByEndpoint(c.UserContext(), endpoint, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(
			entity.NewErrorResponse(entity.CodeInternal, err.Error()),
		)
	}

	return c.JSON(entity.NewSuccessResponse(logs, "Logs retrieved successfully"))
}
