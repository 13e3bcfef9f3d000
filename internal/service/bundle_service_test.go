package service

import (
	"bytes"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-hall-api/internal/models"
	"github.com/noah-isme/exam-hall-api/pkg/pdfutil"
)

func makeQP(t *testing.T, pages int, title string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	for i := 0; i < pages; i++ {
		doc.AddPage()
		doc.SetFont("Arial", "B", 16)
		doc.Cell(80, 10, title)
	}
	buf := &bytes.Buffer{}
	require.NoError(t, doc.Output(buf))
	return buf.Bytes()
}

func demandFor(room, subject string, n int) []models.QPDemandRecord {
	detail := make([]models.QPDemandRecord, 0, n)
	for i := 0; i < n; i++ {
		detail = append(detail, models.QPDemandRecord{
			RoomID:  room,
			BenchNo: i + 1,
			Seat:    models.SeatLeft,
			Subject: subject,
		})
	}
	return detail
}

func TestAssembleRepeatsSourcePerStudent(t *testing.T) {
	mapping := []models.QPMappingEntry{{QPCode: "Q1", Subject: "MATH"}}
	uploads := map[string][]byte{"Q1": makeQP(t, 2, "Mathematics")}

	svc := NewBundleService(nil, 0, nil)
	result, err := svc.Assemble(mapping, demandFor("Room A", "MATH", 3), uploads, []string{"Room A"})
	require.NoError(t, err)
	require.Contains(t, result.RoomPDFs, "Room A")

	pages, err := pdfutil.PageCount(result.RoomPDFs["Room A"])
	require.NoError(t, err)
	assert.Equal(t, 6, pages) // 3 copies x 2 pages

	require.Len(t, result.Summary, 1)
	assert.Equal(t, models.RoomQPSummaryRow{RoomID: "Room A", Subject: "MATH", QPCode: "Q1", Students: 3, TotalStudents: 3}, result.Summary[0])
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.MissingQPCodes)
}

func TestAssembleMissingMappingWarnsAndSkips(t *testing.T) {
	mapping := []models.QPMappingEntry{{QPCode: "Q1", Subject: "MATH"}}
	uploads := map[string][]byte{"Q1": makeQP(t, 1, "Mathematics")}

	detail := append(demandFor("Room A", "MATH", 2), demandFor("Room A", "HISTORY", 1)...)

	svc := NewBundleService(nil, 0, nil)
	result, err := svc.Assemble(mapping, detail, uploads, []string{"Room A"})
	require.NoError(t, err)

	// MATH still bundles; HISTORY is skipped with a warning.
	pages, err := pdfutil.PageCount(result.RoomPDFs["Room A"])
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	require.Len(t, result.Summary, 1)
	assert.Equal(t, "MATH", result.Summary[0].Subject)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "HISTORY")
	assert.Contains(t, result.Warnings[0], "Room A")
}

func TestAssembleMissingUploadWarnsAndRecordsCode(t *testing.T) {
	mapping := []models.QPMappingEntry{
		{QPCode: "Q1", Subject: "MATH"},
		{QPCode: "Q2", Subject: "PHYSICS"},
	}
	uploads := map[string][]byte{"Q1": makeQP(t, 1, "Mathematics")}

	detail := append(demandFor("Room A", "MATH", 1), demandFor("Room A", "PHYSICS", 2)...)

	svc := NewBundleService(nil, 0, nil)
	result, err := svc.Assemble(mapping, detail, uploads, []string{"Room A"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Q2"}, result.MissingQPCodes)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Q2")
}

func TestAssembleRoomWithoutPagesAbsent(t *testing.T) {
	mapping := []models.QPMappingEntry{{QPCode: "Q1", Subject: "MATH"}}

	svc := NewBundleService(nil, 0, nil)
	result, err := svc.Assemble(mapping, demandFor("Room A", "MATH", 2), map[string][]byte{}, []string{"Room A", "Room B"})
	require.NoError(t, err)

	assert.NotContains(t, result.RoomPDFs, "Room A")
	assert.NotContains(t, result.RoomPDFs, "Room B")
	assert.Empty(t, result.Summary)
}

func TestAssembleDuplicateMappingFirstMatchWins(t *testing.T) {
	mapping := []models.QPMappingEntry{
		{QPCode: "Q1", Subject: "MATH"},
		{QPCode: "Q9", Subject: "math"},
	}
	uploads := map[string][]byte{
		"Q1": makeQP(t, 1, "Mathematics"),
		"Q9": makeQP(t, 1, "Mathematics"),
	}

	svc := NewBundleService(nil, 0, nil)
	result, err := svc.Assemble(mapping, demandFor("Room A", "MATH", 1), uploads, []string{"Room A"})
	require.NoError(t, err)

	require.Len(t, result.Summary, 1)
	assert.Equal(t, "Q1", result.Summary[0].QPCode)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "duplicate mapping rows")
}

func TestAssembleMaxSourcePages(t *testing.T) {
	mapping := []models.QPMappingEntry{{QPCode: "Q1", Subject: "MATH"}}
	uploads := map[string][]byte{"Q1": makeQP(t, 4, "Mathematics")}

	svc := NewBundleService(nil, 6, nil)
	result, err := svc.Assemble(mapping, demandFor("Room A", "MATH", 2), uploads, []string{"Room A"})
	require.NoError(t, err)

	assert.Empty(t, result.RoomPDFs)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "page limit")
}

func TestAssembleDeterministic(t *testing.T) {
	mapping := []models.QPMappingEntry{
		{QPCode: "Q1", Subject: "MATH"},
		{QPCode: "Q2", Subject: "PHYSICS"},
	}
	uploads := map[string][]byte{
		"Q1": makeQP(t, 1, "Mathematics"),
		"Q2": makeQP(t, 2, "Physics"),
	}
	detail := append(demandFor("Room A", "MATH", 2), demandFor("Room A", "PHYSICS", 1)...)

	svc := NewBundleService(nil, 0, nil)
	first, err := svc.Assemble(mapping, detail, uploads, []string{"Room A"})
	require.NoError(t, err)
	second, err := svc.Assemble(mapping, detail, uploads, []string{"Room A"})
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.RoomPDFs["Room A"], second.RoomPDFs["Room A"])
}

func TestMappingResolverFuzzyStrategy(t *testing.T) {
	mapping := []models.QPMappingEntry{{QPCode: "Q1", Subject: "MATHEMATICS"}}
	uploads := map[string][]byte{"Q1": []byte("pdf")}

	resolver, warnings := NewMappingResolver(mapping, uploads, NewFuzzyMatcher(0.7))
	require.Empty(t, warnings)

	source, err := resolver.Resolve("MATHEMATIC")
	require.NoError(t, err)
	assert.Equal(t, "Q1", source.Code)

	_, err = resolver.Resolve("BIOLOGY")
	require.Error(t, err)
}

func TestContentClassifier(t *testing.T) {
	mapping := []models.QPMappingEntry{
		{QPCode: "Q1", Subject: "MATHEMATICS"},
		{QPCode: "Q2", Subject: "PHYSICS"},
	}

	classifier := NewContentClassifier(nil)
	classifier.extract = func([]byte) (string, error) {
		return "First Semester Examination\nMathematics\nTime: 3 hours", nil
	}

	entry, ok := classifier.Classify([]byte("pdf"), mapping)
	require.True(t, ok)
	assert.Equal(t, "Q1", entry.QPCode)
	assert.Equal(t, "MATHEMATICS", entry.Subject)

	classifier.extract = func([]byte) (string, error) {
		return "completely unrelated text", nil
	}
	_, ok = classifier.Classify([]byte("pdf"), mapping)
	assert.False(t, ok)
}

func TestContentClassifierRealPDF(t *testing.T) {
	mapping := []models.QPMappingEntry{
		{QPCode: "Q1", Subject: "MATHEMATICS"},
		{QPCode: "Q2", Subject: "PHYSICS"},
	}
	data := makeQP(t, 1, "Mathematics")

	classifier := NewContentClassifier(NewFuzzyMatcher(0.7))
	entry, ok := classifier.Classify(data, mapping)
	require.True(t, ok)
	assert.Equal(t, "Q1", entry.QPCode)
}
