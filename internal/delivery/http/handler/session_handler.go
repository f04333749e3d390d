package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/usecase"
)

type SessionHandler struct {
	usecase usecase.SigningUsecase
	logger  *zap.Logger
}

func NewSessionHandler(usecase usecase.SigningUsecase, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// LoadSignatureRequest carries an image rendered by the client canvas
type LoadSignatureRequest struct {
	DataURL string `json:"dataURL"`
}

// CreateSession godoc
// @Summary Create signing session
// @Tags sessions
// @Produce json
// @Success 201 {object} entity.APIResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	session, err := h.usecase.CreateSession(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(entity.NewSuccessResponse(session, "Session created successfully"))
}

// GetSession godoc
// @Summary Get signing session
// @Description Current selection, signature presence and upload outcome
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.usecase.GetSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(session, "Session retrieved successfully"))
}

// DeleteSession godoc
// @Summary Delete signing session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	if err := h.usecase.DeleteSession(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(nil, "Session deleted successfully"))
}

// SelectFile godoc
// @Summary Select the document to sign
// @Description Accepts a PDF under the multipart field "file". A request without a file clears the selection.
// @Tags sessions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file false "PDF document"
// @Success 200 {object} entity.APIResponse
// @Failure 422 {object} entity.APIResponse
// @Router /api/v1/sessions/{id}/file [put]
func (h *SessionHandler) SelectFile(c *fiber.Ctx) error {
	candidate, err := readCandidate(c, "file")
	if err != nil {
		h.logger.Error("Failed to read uploaded file", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.CodeBadRequest, "Invalid file upload"),
		)
	}

	file, err := h.usecase.SelectFile(c.UserContext(), c.Params("id"), candidate)
	if err != nil {
		return respondError(c, err)
	}

	if file == nil {
		return c.JSON(entity.NewSuccessResponse(nil, "File selection cleared"))
	}
	return c.JSON(entity.NewSuccessResponse(file, "File selected successfully"))
}

// ClearFile godoc
// @Summary Clear the selected document
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 200 {object} entity.APIResponse
// @Router /api/v1/sessions/{id}/file [delete]
func (h *SessionHandler) ClearFile(c *fiber.Ctx) error {
	if err := h.usecase.ClearFile(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(nil, "File selection cleared"))
}

// ApplyPointerEvents godoc
// @Summary Draw on the signature pad
// @Description Replays a batch of pointer events (down, move, up, leave) in order
// @Tags signature
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body []entity.PointerEvent true "Pointer events"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Router /api/v1/sessions/{id}/signature/events [post]
func (h *SessionHandler) ApplyPointerEvents(c *fiber.Ctx) error {
	var events []entity.PointerEvent
	if err := c.BodyParser(&events); err != nil {
		h.logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.CodeBadRequest, "Invalid request body"),
		)
	}

	artifact, err := h.usecase.ApplyPointerEvents(c.UserContext(), c.Params("id"), events)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(artifact, "Pointer events applied"))
}

// LoadSignature godoc
// @Summary Upload a finished signature image
// @Tags signature
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body LoadSignatureRequest true "PNG data URL"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Router /api/v1/sessions/{id}/signature [put]
func (h *SessionHandler) LoadSignature(c *fiber.Ctx) error {
	var req LoadSignatureRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.CodeBadRequest, "Invalid request body"),
		)
	}

	if req.DataURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.CodeBadRequest, "dataURL is required"),
		)
	}

	artifact, err := h.usecase.LoadSignature(c.UserContext(), c.Params("id"), req.DataURL)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(artifact, "Signature loaded successfully"))
}

// GetSignature godoc
// @Summary Download the signature as PNG
// @Tags signature
// @Produce png
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/sessions/{id}/signature [get]
func (h *SessionHandler) GetSignature(c *fiber.Ctx) error {
	img, err := h.usecase.SignatureImage(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(img)
}

// ClearSignature godoc
// @Summary Clear the signature pad
// @Tags signature
// @Param id path string true "Session ID"
// @Success 200 {object} entity.APIResponse
// @Router /api/v1/sessions/{id}/signature [delete]
func (h *SessionHandler) ClearSignature(c *fiber.Ctx) error {
	if err := h.usecase.ClearSignature(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(nil, "Signature cleared"))
}

// Submit godoc
// @Summary Submit document and signature
// @Description Starts the upload. Progress is available from the outcome endpoints.
// @Tags submission
// @Produce json
// @Param id path string true "Session ID"
// @Success 202 {object} entity.APIResponse
// @Failure 409 {object} entity.APIResponse
// @Failure 422 {object} entity.APIResponse
// @Router /api/v1/sessions/{id}/submit [post]
func (h *SessionHandler) Submit(c *fiber.Ctx) error {
	outcome, err := h.usecase.Submit(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(entity.NewSuccessResponse(outcome, "Submission started"))
}

// GetOutcome godoc
// @Summary Poll the upload outcome
// @Tags submission
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} entity.APIResponse
// @Failure 404 {object} entity.APIResponse
// @Router /api/v1/sessions/{id}/outcome [get]
func (h *SessionHandler) GetOutcome(c *fiber.Ctx) error {
	outcome, err := h.usecase.Outcome(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(entity.NewSuccessResponse(outcome, "Outcome retrieved successfully"))
}

// StreamOutcome godoc
// @Summary Stream upload progress
// @Description Server-sent events, one per outcome change, ending with the terminal outcome
// @Tags submission
// @Produce text/event-stream
// @Param id path string true "Session ID"
// @Router /api/v1/sessions/{id}/outcome/stream [get]
func (h *SessionHandler) StreamOutcome(c *fiber.Ctx) error {
	// the stream writer runs after the handler returned
	id := utils.CopyString(c.Params("id"))
	events, err := h.usecase.Watch(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	logger := h.logger
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for ev := range events {
			data, err := json.Marshal(ev.Outcome)
			if err != nil {
				logger.Error("Failed to encode outcome", zap.Error(err))
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Outcome.State, data)
			if err := w.Flush(); err != nil {
				logger.Debug("Outcome stream closed by client", zap.String("session_id", id))
				return
			}
		}
	})

	return nil
}

// readCandidate reads a multipart file field. A missing field yields an empty candidate.
func readCandidate(c *fiber.Ctx, field string) (entity.FileCandidate, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return entity.FileCandidate{}, nil
	}

	f, err := fh.Open()
	if err != nil {
		return entity.FileCandidate{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return entity.FileCandidate{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return entity.FileCandidate{
		Name:      fh.Filename,
		MediaType: fh.Header.Get(fiber.HeaderContentType),
		Content:   content,
	}, nil
}
