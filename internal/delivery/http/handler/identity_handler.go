package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/usecase"
)

type IdentityHandler struct {
	usecase usecase.SigningUsecase
	logger  *zap.Logger
}

func NewIdentityHandler(usecase usecase.SigningUsecase, logger *zap.Logger) *IdentityHandler {
	return &IdentityHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// Extract godoc
// @Summary Extract identity data from a DNI image
// @Description Forwards the image to the extraction service. Structured data is returned under "data", free text under "raw".
// @Tags identity
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "DNI image"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 422 {object} entity.APIResponse
// @Failure 502 {object} entity.APIResponse
// @Router /api/v1/identity/extract [post]
func (h *IdentityHandler) Extract(c *fiber.Ctx) error {
	image, err := readCandidate(c, "file")
	if err != nil {
		h.logger.Error("Failed to read uploaded image", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.CodeBadRequest, "Invalid file upload"),
		)
	}

	if image.IsEmpty() {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.CodeBadRequest, "file is required"),
		)
	}

	result, err := h.usecase.ExtractIdentity(c.UserContext(), image)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(result, "Identity data extracted"))
}
