package pdfinspect

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// minimalPDF builds a small but well-formed PDF with the given number of pages
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int

	buf.WriteString("%PDF-1.4\n")

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	writeObj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for p := 0; p < pages; p++ {
		kids += fmt.Sprintf("%d 0 R ", 3+p)
	}
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))

	for p := 0; p < pages; p++ {
		writeObj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefOffset)

	return buf.Bytes()
}

func TestInspector_PageCount(t *testing.T) {
	inspector := NewInspector(zap.NewNop())

	pages, err := inspector.PageCount(minimalPDF(1))
	require.NoError(t, err)
	assert.Equal(t, 1, pages)

	pages, err = inspector.PageCount(minimalPDF(3))
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
}

func TestInspector_RejectsGarbage(t *testing.T) {
	inspector := NewInspector(zap.NewNop())

	_, err := inspector.PageCount([]byte("this is not a pdf at all"))
	assert.Error(t, err)
}
