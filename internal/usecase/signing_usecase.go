package usecase

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contrato-firma/internal/config"
	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/domain/repository"
	"contrato-firma/internal/infrastructure/extraction"
	"contrato-firma/internal/selector"
	"contrato-firma/internal/signature"
	"contrato-firma/internal/upload"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrNoSignature          = errors.New("no signature captured")
)

type SigningUsecase interface {
	CreateSession(ctx context.Context) (*entity.SessionSnapshot, error)
	GetSession(ctx context.Context, id string) (*entity.SessionSnapshot, error)
	DeleteSession(ctx context.Context, id string) error

	SelectFile(ctx context.Context, id string, candidate entity.FileCandidate) (*entity.SelectedFile, error)
	ClearFile(ctx context.Context, id string) error

	ApplyPointerEvents(ctx context.Context, id string, events []entity.PointerEvent) (*entity.SignatureArtifact, error)
	LoadSignature(ctx context.Context, id string, dataURL string) (*entity.SignatureArtifact, error)
	ClearSignature(ctx context.Context, id string) error
	SignatureImage(ctx context.Context, id string) ([]byte, error)

	Submit(ctx context.Context, id string) (entity.UploadOutcome, error)
	Outcome(ctx context.Context, id string) (entity.UploadOutcome, error)
	// Watch streams the events of the current submission. Without a running
	// submission the channel yields the current outcome once and closes.
	Watch(ctx context.Context, id string) (<-chan entity.UploadEvent, error)

	ExtractIdentity(ctx context.Context, image entity.FileCandidate) (*entity.ExtractionResult, error)
}

// session owns the three state slots of one user. Each slot is written by
// exactly one component: the selector, the pad (through OnChange) and the
// coordinator (through the Submission).
type session struct {
	id        string
	createdAt time.Time

	mu         sync.Mutex
	selector   *selector.Selector
	pad        *signature.Pad
	signature  *entity.SignatureArtifact
	outcome    entity.UploadOutcome
	submission *upload.Submission
	// deleted stops the mirror from writing the outcome back after DeleteSession
	deleted bool
}

// currentOutcome must be called with s.mu held
func (s *session) currentOutcome() entity.UploadOutcome {
	if s.submission != nil {
		return s.submission.Status()
	}
	return s.outcome
}

func (s *session) snapshot() *entity.SessionSnapshot {
	return &entity.SessionSnapshot{
		ID:           s.id,
		File:         s.selector.Current(),
		HasSignature: s.signature != nil,
		Outcome:      s.currentOutcome(),
		CreatedAt:    s.createdAt,
	}
}

type signingUsecase struct {
	config      *config.Config
	coordinator *upload.Coordinator
	inspector   selector.Inspector
	extractor   extraction.Extractor
	outcomeRepo repository.OutcomeRepository
	inkColor    color.Color
	logger      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewSigningUsecase(
	cfg *config.Config,
	coordinator *upload.Coordinator,
	inspector selector.Inspector,
	extractor extraction.Extractor,
	outcomeRepo repository.OutcomeRepository,
	logger *zap.Logger,
) SigningUsecase {
	var ink color.Color = color.Black
	if cfg.Signature.Color != "" {
		parsed, err := signature.ParseHexColor(cfg.Signature.Color)
		if err != nil {
			logger.Warn("Invalid signature color, using black",
				zap.String("color", cfg.Signature.Color),
				zap.Error(err),
			)
		} else {
			ink = parsed
		}
	}

	if !cfg.Upload.InspectPDF {
		inspector = nil
	}

	return &signingUsecase{
		config:      cfg,
		coordinator: coordinator,
		inspector:   inspector,
		extractor:   extractor,
		outcomeRepo: outcomeRepo,
		inkColor:    ink,
		logger:      logger,
		sessions:    make(map[string]*session),
	}
}

func (u *signingUsecase) CreateSession(ctx context.Context) (*entity.SessionSnapshot, error) {
	s := &session{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		outcome:   entity.IdleOutcome(),
		selector: selector.New(selector.Options{
			AcceptedTypes: u.config.Upload.AcceptedTypes,
			MaxFileSize:   u.config.Upload.MaxFileSize,
			Inspector:     u.inspector,
		}),
	}
	s.pad = signature.NewPad(signature.Options{
		Width:     u.config.Signature.Width,
		Height:    u.config.Signature.Height,
		LineWidth: u.config.Signature.LineWidth,
		Color:     u.inkColor,
		// called by the pad while s.mu is held
		OnChange: func(a *entity.SignatureArtifact) {
			s.signature = a
		},
	})

	u.mu.Lock()
	u.sessions[s.id] = s
	u.mu.Unlock()

	u.logger.Info("Signing session created", zap.String("session_id", s.id))

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

func (u *signingUsecase) GetSession(ctx context.Context, id string) (*entity.SessionSnapshot, error) {
	s, err := u.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

func (u *signingUsecase) DeleteSession(ctx context.Context, id string) error {
	u.mu.Lock()
	s, ok := u.sessions[id]
	delete(u.sessions, id)
	u.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted = true
	if err := u.outcomeRepo.Delete(ctx, s.id); err != nil {
		u.logger.Warn("Failed to delete outcome snapshot",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
	}

	u.logger.Info("Signing session deleted", zap.String("session_id", s.id))
	return nil
}

func (u *signingUsecase) SelectFile(ctx context.Context, id string, candidate entity.FileCandidate) (*entity.SelectedFile, error) {
	s, err := u.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.selector.Select(candidate)
	if err != nil {
		u.logger.Info("File rejected",
			zap.String("session_id", id),
			zap.String("filename", candidate.Name),
			zap.String("media_type", candidate.MediaType),
			zap.Error(err),
		)
		return nil, err
	}

	if file == nil {
		u.logger.Info("File selection cleared", zap.String("session_id", id))
		return nil, nil
	}

	u.logger.Info("File selected",
		zap.String("session_id", id),
		zap.String("filename", file.Name),
		zap.Int64("size", file.Size),
		zap.Int("pages", file.PageCount),
	)
	return file, nil
}

func (u *signingUsecase) ClearFile(ctx context.Context, id string) error {
	s, err := u.session(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.selector.Clear()
	s.mu.Unlock()
	return nil
}

func (u *signingUsecase) ApplyPointerEvents(ctx context.Context, id string, events []entity.PointerEvent) (*entity.SignatureArtifact, error) {
	s, err := u.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pad.Apply(events); err != nil {
		return nil, err
	}
	return s.signature, nil
}

func (u *signingUsecase) LoadSignature(ctx context.Context, id string, dataURL string) (*entity.SignatureArtifact, error) {
	s, err := u.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pad.Load(dataURL); err != nil {
		return nil, err
	}

	u.logger.Info("Signature loaded", zap.String("session_id", id))
	return s.signature, nil
}

func (u *signingUsecase) ClearSignature(ctx context.Context, id string) error {
	s, err := u.session(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pad.Clear()
	s.mu.Unlock()
	return nil
}

func (u *signingUsecase) SignatureImage(ctx context.Context, id string) ([]byte, error) {
	s, err := u.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	artifact := s.signature
	s.mu.Unlock()

	if artifact == nil {
		return nil, ErrNoSignature
	}

	raw, _, err := signature.DecodeDataURL(artifact.DataURL)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (u *signingUsecase) Submit(ctx context.Context, id string) (entity.UploadOutcome, error) {
	s, err := u.session(id)
	if err != nil {
		return entity.UploadOutcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentOutcome().State == entity.UploadInProgress {
		return s.currentOutcome(), ErrSubmissionInProgress
	}

	// s.id outlives the request; id may be backed by a reused request buffer
	sub, err := u.coordinator.Submit(ctx, s.id, s.selector.Current(), s.signature)
	if err != nil {
		s.submission = nil
		s.outcome = entity.FailedOutcome(errorMessage(err))
		u.saveOutcome(s.id, s.outcome)
		return s.outcome, err
	}

	s.submission = sub
	go u.mirror(s, sub)

	return sub.Status(), nil
}

func (u *signingUsecase) Outcome(ctx context.Context, id string) (entity.UploadOutcome, error) {
	s, err := u.session(id)
	if err == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.currentOutcome(), nil
	}

	// The session may live on another instance; fall back to the shared snapshot
	outcome, repoErr := u.outcomeRepo.Find(ctx, id)
	if repoErr != nil {
		if !errors.Is(repoErr, repository.ErrOutcomeNotFound) {
			u.logger.Warn("Failed to read outcome snapshot",
				zap.String("session_id", id),
				zap.Error(repoErr),
			)
		}
		return entity.UploadOutcome{}, ErrSessionNotFound
	}
	return *outcome, nil
}

func (u *signingUsecase) Watch(ctx context.Context, id string) (<-chan entity.UploadEvent, error) {
	s, err := u.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submission != nil {
		return s.submission.Events(), nil
	}

	ch := make(chan entity.UploadEvent, 1)
	ch <- entity.UploadEvent{Outcome: s.outcome}
	close(ch)
	return ch, nil
}

func (u *signingUsecase) ExtractIdentity(ctx context.Context, image entity.FileCandidate) (*entity.ExtractionResult, error) {
	result, err := u.extractor.Extract(ctx, image)
	if err != nil {
		u.logger.Error("Failed to extract identity data",
			zap.String("filename", image.Name),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func (u *signingUsecase) session(id string) (*session, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	s, ok := u.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// mirror copies the submission's events into the outcome repository. Writes
// happen under s.mu and stop once the session moved on to another attempt or
// was deleted, so a lagging mirror never overwrites a newer outcome.
func (u *signingUsecase) mirror(s *session, sub *upload.Submission) {
	for ev := range sub.Events() {
		s.mu.Lock()
		if s.deleted || s.submission != sub {
			s.mu.Unlock()
			return
		}
		u.saveOutcome(s.id, ev.Outcome)
		s.mu.Unlock()
	}
}

func (u *signingUsecase) saveOutcome(id string, outcome entity.UploadOutcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := u.outcomeRepo.Save(ctx, id, outcome); err != nil {
		u.logger.Warn("Failed to store outcome snapshot",
			zap.String("session_id", id),
			zap.String("state", string(outcome.State)),
			zap.Error(err),
		)
	}
}

// errorMessage returns the user-facing part of err
func errorMessage(err error) string {
	var ue *entity.UploadError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}
