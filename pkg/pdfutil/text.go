package pdfutil

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FirstPageText extracts the plain text of the first page of a PDF. Used to
// resolve the subject a question paper belongs to from the paper itself.
func FirstPageText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if reader.NumPage() < 1 {
		return "", fmt.Errorf("pdf has no pages")
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return "", fmt.Errorf("pdf first page unavailable")
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
