package signature

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrato-firma/internal/domain/entity"
)

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestDecodeDataURL(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantBytes []byte
		wantType  string
		wantErr   bool
	}{
		{
			name:      "png",
			input:     "data:image/png;base64," + encodeBase64([]byte{0x89, 'P', 'N', 'G'}),
			wantBytes: []byte{0x89, 'P', 'N', 'G'},
			wantType:  "image/png",
		},
		{
			name:      "default media type",
			input:     "data:;base64," + encodeBase64([]byte("hi")),
			wantBytes: []byte("hi"),
			wantType:  "text/plain",
		},
		{name: "no scheme", input: "image/png;base64,AAAA", wantErr: true},
		{name: "no comma", input: "data:image/png;base64", wantErr: true},
		{name: "not base64", input: "data:image/png,rawbytes", wantErr: true},
		{name: "bad payload", input: "data:image/png;base64,!!!", wantErr: true},
		{name: "empty payload", input: "data:image/png;base64,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, mediaType, err := DecodeDataURL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var ue *entity.UploadError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, entity.KindDecode, ue.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBytes, raw)
			assert.Equal(t, tt.wantType, mediaType)
		})
	}
}
