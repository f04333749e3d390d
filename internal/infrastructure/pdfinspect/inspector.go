package pdfinspect

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

func init() {
	// Keep pdfcpu from creating its config directory under the user's home
	api.DisableConfigDir()
}

// Inspector parses PDF content with pdfcpu to confirm it is a readable document
type Inspector struct {
	logger *zap.Logger
}

func NewInspector(logger *zap.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// PageCount reads the cross reference table and page tree of content
func (i *Inspector) PageCount(content []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(content), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("failed to ensure page count: %w", err)
	}

	if ctx.PageCount < 1 {
		return 0, fmt.Errorf("document has no pages")
	}

	i.logger.Debug("PDF inspected",
		zap.Int("size", len(content)),
		zap.Int("pages", ctx.PageCount),
	)

	return ctx.PageCount, nil
}
