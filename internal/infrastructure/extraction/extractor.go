package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"contrato-firma/internal/config"
	"contrato-firma/internal/domain/entity"
	"contrato-firma/internal/infrastructure/httpclient"
)

var (
	ErrNotAnImage = errors.New("el archivo debe ser una imagen")
	ErrEmptyImage = errors.New("image is empty")
)

// fieldAliases maps the keys the extraction service may use onto IdentityData fields
var fieldAliases = map[string]string{
	"nombre":            "nombre",
	"name":              "nombre",
	"apellido":          "apellido",
	"surname":           "apellido",
	"documento":         "documento",
	"dni":               "documento",
	"document":          "documento",
	"domicilio":         "domicilio",
	"address":           "domicilio",
	"fechanacimiento":   "fechaNacimiento",
	"birthdate":         "fechaNacimiento",
	"direccion":         "domicilio",
	"sexo":              "sexo",
	"genero":            "sexo",
	"sex":               "sexo",
	"lugarnacimiento":   "lugarNacimiento",
	"fechadenacimiento": "fechaNacimiento",
	"lugardenacimiento": "lugarNacimiento",
	"birthplace":        "lugarNacimiento",
}

// Extractor sends DNI images to the external extraction endpoint
type Extractor interface {
	Extract(ctx context.Context, image entity.FileCandidate) (*entity.ExtractionResult, error)
}

type extractor struct {
	client httpclient.HTTPClient
	path   string
	logger *zap.Logger
}

func NewExtractor(cfg *config.Config, client httpclient.HTTPClient, logger *zap.Logger) Extractor {
	return &extractor{
		client: client,
		path:   cfg.Submission.ExtractPath,
		logger: logger,
	}
}

func (e *extractor) Extract(ctx context.Context, image entity.FileCandidate) (*entity.ExtractionResult, error) {
	mediaType, _, _ := mime.ParseMediaType(image.MediaType)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, entity.NewValidationError(ErrNotAnImage.Error(), ErrNotAnImage)
	}
	if len(image.Content) == 0 {
		return nil, entity.NewValidationError(ErrEmptyImage.Error(), ErrEmptyImage)
	}

	e.logger.Info("Extracting identity data",
		zap.String("filename", image.Name),
		zap.Int("size", len(image.Content)),
	)

	var envelope entity.ExtractionEnvelope
	err := e.client.PostMultipart(ctx, nil, e.path, nil, []httpclient.FileUpload{{
		FieldName:   "file",
		Filename:    image.Name,
		ContentType: mediaType,
		Content:     image.Content,
	}}, nil, &envelope)
	if err != nil {
		return nil, entity.NewTransferError("identity extraction failed", err)
	}

	result := ParseResponse(envelope.Response)
	e.logger.Info("Identity extraction finished",
		zap.Bool("structured", result.Data != nil),
	)

	return result, nil
}

// ParseResponse decodes the envelope's response string. A JSON object becomes
// structured IdentityData; anything else is handed back untouched as Raw.
func ParseResponse(response string) *entity.ExtractionResult {
	trimmed := strings.TrimSpace(response)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(trimmed)), &fields); err != nil {
		return &entity.ExtractionResult{Raw: response}
	}

	normalized := make(map[string]string, len(fields))
	for key, value := range fields {
		target, ok := fieldAliases[normalizeKey(key)]
		if !ok {
			continue
		}
		normalized[target] = stringify(value)
	}

	data := &entity.IdentityData{
		Nombre:          normalized["nombre"],
		Apellido:        normalized["apellido"],
		Documento:       normalized["documento"],
		Domicilio:       normalized["domicilio"],
		FechaNacimiento: normalized["fechaNacimiento"],
		Sexo:            normalized["sexo"],
		LugarNacimiento: normalized["lugarNacimiento"],
	}

	return &entity.ExtractionResult{Data: data}
}

// stripMarks removes accents so "Dirección" and "direccion" map to the same key
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeKey(key string) string {
	if stripped, _, err := transform.String(stripMarks, key); err == nil {
		key = stripped
	}
	key = strings.ToLower(key)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return fmt.Sprintf("%.0f", val)
	default:
		return fmt.Sprint(val)
	}
}
