package pdfutil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCount returns the number of pages in the given PDF bytes.
func PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return count, nil
}

// RepeatedSource describes one source document and how many full copies of
// it the merged output should contain.
type RepeatedSource struct {
	Data   []byte
	Copies int
}

// MergeRepeated concatenates the sources in order, repeating each one
// Copies times, and returns the merged document. Page order inside each
// copy is preserved. Returns nil bytes when no copies are requested.
func MergeRepeated(sources []RepeatedSource) ([]byte, error) {
	readers := make([]io.ReadSeeker, 0, len(sources))
	for _, src := range sources {
		for i := 0; i < src.Copies; i++ {
			readers = append(readers, bytes.NewReader(src.Data))
		}
	}
	if len(readers) == 0 {
		return nil, nil
	}

	buf := &bytes.Buffer{}
	if err := api.MergeRaw(readers, buf, false, nil); err != nil {
		return nil, fmt.Errorf("merge pdfs: %w", err)
	}
	return buf.Bytes(), nil
}
