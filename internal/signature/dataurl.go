package signature

import (
	"encoding/base64"
	"errors"
	"strings"

	"contrato-firma/internal/domain/entity"
)

var ErrMalformedDataURL = errors.New("malformed data URL")

// DecodeDataURL returns the binary payload and media type of a base64 data URL
// such as the ones produced by a canvas toDataURL call.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, "", entity.NewDecodeError("signature data could not be decoded", ErrMalformedDataURL)
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", entity.NewDecodeError("signature data could not be decoded", ErrMalformedDataURL)
	}

	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", entity.NewDecodeError("signature data must be base64 encoded", ErrMalformedDataURL)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", entity.NewDecodeError("signature data could not be decoded", err)
	}
	if len(raw) == 0 {
		return nil, "", entity.NewDecodeError("signature data is empty", ErrMalformedDataURL)
	}

	return raw, strings.ToLower(mediaType), nil
}
