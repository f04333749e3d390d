package selector

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"contrato-firma/internal/domain/entity"
)

var (
	// ErrInvalidMediaType is returned when the declared type is not accepted
	ErrInvalidMediaType = errors.New("must be a PDF")
	ErrEmptyFile        = errors.New("file is empty")
	ErrFileTooLarge     = errors.New("file too large")
	ErrCorruptDocument  = errors.New("document could not be read")
)

// Inspector looks inside an accepted document and reports its page count
type Inspector interface {
	PageCount(content []byte) (int, error)
}

// Options configures a Selector
type Options struct {
	AcceptedTypes []string
	MaxFileSize   int64
	Inspector     Inspector
}

// Selector holds at most one valid file selection.
// It is not safe for concurrent use; the owning session serializes access.
type Selector struct {
	accepted  map[string]struct{}
	maxSize   int64
	inspector Inspector
	current   *entity.SelectedFile
}

func New(opts Options) *Selector {
	accepted := make(map[string]struct{}, len(opts.AcceptedTypes))
	for _, t := range opts.AcceptedTypes {
		accepted[normalizeMediaType(t)] = struct{}{}
	}
	if len(accepted) == 0 {
		accepted["application/pdf"] = struct{}{}
	}

	return &Selector{
		accepted:  accepted,
		maxSize:   opts.MaxFileSize,
		inspector: opts.Inspector,
	}
}

// Select validates the candidate and, when valid, makes it the current selection.
// A rejected candidate leaves the current selection untouched.
// An empty candidate clears the selection.
func (s *Selector) Select(c entity.FileCandidate) (*entity.SelectedFile, error) {
	if c.IsEmpty() {
		s.current = nil
		return nil, nil
	}

	if _, ok := s.accepted[normalizeMediaType(c.MediaType)]; !ok {
		return nil, entity.NewValidationError(ErrInvalidMediaType.Error(), ErrInvalidMediaType)
	}

	size := int64(len(c.Content))
	if size == 0 {
		return nil, entity.NewValidationError(ErrEmptyFile.Error(), ErrEmptyFile)
	}
	if s.maxSize > 0 && size > s.maxSize {
		msg := fmt.Sprintf("%s: %d bytes (max: %d bytes)", ErrFileTooLarge, size, s.maxSize)
		return nil, entity.NewValidationError(msg, ErrFileTooLarge)
	}

	file := &entity.SelectedFile{
		Name:      c.Name,
		Size:      size,
		MediaType: normalizeMediaType(c.MediaType),
		Content:   c.Content,
	}

	if s.inspector != nil {
		pages, err := s.inspector.PageCount(c.Content)
		if err != nil {
			return nil, entity.NewValidationError(ErrCorruptDocument.Error(), fmt.Errorf("%w: %v", ErrCorruptDocument, err))
		}
		file.PageCount = pages
	}

	s.current = file
	return file, nil
}

// Current returns the current selection or nil
func (s *Selector) Current() *entity.SelectedFile {
	return s.current
}

// Clear drops the current selection
func (s *Selector) Clear() {
	s.current = nil
}

func normalizeMediaType(t string) string {
	mt, _, err := mime.ParseMediaType(t)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(t))
	}
	return mt
}
