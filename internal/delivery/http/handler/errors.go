package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/signature"
	"contrato-firma/internal/usecase"
)

// respondError maps usecase and domain errors onto HTTP status codes
func respondError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, entity.CodeInternal
	message := err.Error()

	var ue *entity.UploadError
	switch {
	case errors.Is(err, usecase.ErrSessionNotFound), errors.Is(err, usecase.ErrNoSignature):
		status, code = fiber.StatusNotFound, entity.CodeNotFound
	case errors.Is(err, usecase.ErrSubmissionInProgress):
		status, code = fiber.StatusConflict, entity.CodeConflict
	case errors.Is(err, signature.ErrUnknownPointerEvent):
		status, code = fiber.StatusBadRequest, entity.CodeBadRequest
	case errors.As(err, &ue):
		message = ue.Message
		switch ue.Kind {
		case entity.KindValidation:
			status, code = fiber.StatusUnprocessableEntity, entity.CodeValidation
		case entity.KindDecode:
			status, code = fiber.StatusBadRequest, entity.CodeBadRequest
		case entity.KindTransfer:
			status, code = fiber.StatusBadGateway, entity.CodeBadGateway
		}
	}

	return c.Status(status).JSON(entity.NewErrorResponse(code, message))
}
