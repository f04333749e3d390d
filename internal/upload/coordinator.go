package upload

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"contrato-firma/internal/config"
	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/infrastructure/httpclient"
	"contrato-firma/internal/signature"
)

var (
	ErrNothingToSubmit  = errors.New("Debes proporcionar al menos un documento PDF o una firma")
	ErrMissingFile      = errors.New("Debes seleccionar un documento PDF")
	ErrMissingSignature = errors.New("Debes proporcionar una firma")
)

// Coordinator sends a document and a signature to the submission backend
// in a single multipart request and reports the transfer as a Submission.
type Coordinator struct {
	client        httpclient.HTTPClient
	path          string
	require       string
	fieldName     string
	signatureName string
	logger        *zap.Logger
}

func NewCoordinator(cfg *config.Config, client httpclient.HTTPClient, logger *zap.Logger) *Coordinator {
	fieldName := cfg.Upload.FieldName
	if fieldName == "" {
		fieldName = "files"
	}
	signatureName := cfg.Upload.SignatureName
	if signatureName == "" {
		signatureName = "signature.png"
	}

	return &Coordinator{
		client:        client,
		path:          cfg.Submission.UploadPath,
		require:       cfg.Upload.Require,
		fieldName:     fieldName,
		signatureName: signatureName,
		logger:        logger,
	}
}

// Validate checks the submission preconditions without touching the network
func (c *Coordinator) Validate(file *entity.SelectedFile, sig *entity.SignatureArtifact) error {
	if file == nil && sig == nil {
		return entity.NewValidationError(ErrNothingToSubmit.Error(), ErrNothingToSubmit)
	}
	if c.require == config.RequireAny {
		return nil
	}
	if file == nil {
		return entity.NewValidationError(ErrMissingFile.Error(), ErrMissingFile)
	}
	if sig == nil {
		return entity.NewValidationError(ErrMissingSignature.Error(), ErrMissingSignature)
	}
	return nil
}

// Submit validates the inputs and starts the upload. Validation failures are
// returned directly; everything after that is reported through the Submission.
// The upload is detached from ctx cancellation and runs until it completes or
// the HTTP client times out.
func (c *Coordinator) Submit(ctx context.Context, sessionID string, file *entity.SelectedFile, sig *entity.SignatureArtifact) (*Submission, error) {
	if err := c.Validate(file, sig); err != nil {
		return nil, err
	}

	sub := newSubmission()
	sub.progress(0)

	go c.run(context.WithoutCancel(ctx), sub, sessionID, file, sig)

	return sub, nil
}

func (c *Coordinator) run(ctx context.Context, sub *Submission, sessionID string, file *entity.SelectedFile, sig *entity.SignatureArtifact) {
	log := c.logger.With(zap.String("session_id", sessionID))

	files, err := c.buildParts(file, sig)
	if err != nil {
		log.Warn("Failed to prepare submission", zap.Error(err))
		sub.finish(entity.FailedOutcome(err.Error()))
		return
	}

	log.Info("Submitting document bundle",
		zap.Int("parts", len(files)),
		zap.Bool("has_file", file != nil),
		zap.Bool("has_signature", sig != nil),
	)

	var result entity.UploadResult
	reqCtx := &httpclient.RequestContext{SessionID: sessionID}
	err = c.client.PostMultipart(ctx, reqCtx, c.path, nil, files, func(sent, total int64) {
		sub.progress(percent(sent, total))
	}, &result)
	if err != nil {
		uploadErr := entity.NewTransferError("upload failed", err)
		log.Error("Submission failed", zap.Error(err))
		sub.finish(entity.FailedOutcome(uploadErr.Error()))
		return
	}

	if result.Message == "" {
		result.Message = entity.DefaultUploadMessage
	}

	log.Info("Submission completed",
		zap.String("message", result.Message),
		zap.String("contrato_pdf", result.ContratoPDF),
		zap.String("firma_img", result.FirmaIMG),
	)
	sub.finish(entity.SuccessOutcome(&result))
}

func (c *Coordinator) buildParts(file *entity.SelectedFile, sig *entity.SignatureArtifact) ([]httpclient.FileUpload, error) {
	var files []httpclient.FileUpload

	if file != nil {
		files = append(files, httpclient.FileUpload{
			FieldName:   c.fieldName,
			Filename:    file.Name,
			ContentType: file.MediaType,
			Content:     file.Content,
		})
	}

	if sig != nil {
		raw, mediaType, err := signature.DecodeDataURL(sig.DataURL)
		if err != nil {
			return nil, err
		}
		files = append(files, httpclient.FileUpload{
			FieldName:   c.fieldName,
			Filename:    c.signatureName,
			ContentType: mediaType,
			Content:     raw,
		})
	}

	return files, nil
}

// percent is floor(sent*100/total), or 0 while the total is unknown
func percent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(sent * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}
