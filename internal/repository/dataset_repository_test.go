package repository

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseRoomsWorkbook(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Room", "Start", "End"},
		{"Room A", 1, 10},
		{"", "", ""},
		{"Room B", 5, 8},
	})

	rooms, err := ParseRoomsWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, models.RoomCapacity{RoomID: "Room A", BenchStart: 1, BenchEnd: 10}, rooms[0])
	assert.Equal(t, 12, rooms[1].Seats())
}

func TestParseRoomsWorkbookMissingColumn(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Room", "Start"},
		{"Room A", 1},
	})

	_, err := ParseRoomsWorkbook(bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"End"`)
}

func TestParseRoomsWorkbookBadBenchNumbers(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Room", "Start", "End"},
		{"Room A", "one", 10},
	})
	_, err := ParseRoomsWorkbook(bytes.NewReader(data))
	require.Error(t, err)

	data = workbookBytes(t, [][]interface{}{
		{"Room", "Start", "End"},
		{"Room A", 10, 5},
	})
	_, err = ParseRoomsWorkbook(bytes.NewReader(data))
	require.Error(t, err)
}

func TestParseRosterWorkbook(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Class No", "Student Name", "Day1", "DAY2"},
		{"C01", "Alice", "math", ""},
		{"C02", "Bob", "", "physics, stats"},
		{"", "ignored", "", ""},
	})

	records, err := ParseRosterWorkbook(bytes.NewReader(data), "CSE 2024.xlsx")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "C01", records[0].ClassNo)
	assert.Equal(t, "CSE 2024", records[0].SourceFile)
	assert.Equal(t, map[string]string{"DAY1": "math"}, records[0].DayColumns)
	assert.Equal(t, map[string]string{"DAY2": "physics, stats"}, records[1].DayColumns)
}

func TestParseRosterCSV(t *testing.T) {
	csv := "Class No,Student Name,DAY1\nC01,Alice,math\nC02,Bob,\n"

	records, err := ParseRosterCSV(strings.NewReader(csv), "batch.csv")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "batch", records[1].SourceFile)
	assert.Nil(t, records[1].DayColumns)
}

func TestParseMappingWorkbook(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"QP Code", "Subject Name"},
		{" q101 ", "Mathematics"},
		{"Q202", " Physics "},
	})

	entries, err := ParseMappingWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.QPMappingEntry{QPCode: "Q101", Subject: "Mathematics"}, entries[0])
	assert.Equal(t, "Physics", entries[1].Subject)
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestDatasetRepositoryLoad(t *testing.T) {
	base := t.TempDir()

	writeFile(t, filepath.Join(base, "rooms", "Room_DB.xlsx"), workbookBytes(t, [][]interface{}{
		{"Room", "Start", "End"},
		{"Room A", 1, 2},
	}))
	writeFile(t, filepath.Join(base, "students", "CSE 2024.xlsx"), workbookBytes(t, [][]interface{}{
		{"Class No", "Student Name", "DAY1"},
		{"C01", "Alice", "math"},
	}))
	writeFile(t, filepath.Join(base, "students", "ECE 2024.csv"), []byte("Class No,Student Name\nC02,Bob\n"))
	writeFile(t, filepath.Join(base, "mapping", "UG Course Code.xlsx"), workbookBytes(t, [][]interface{}{
		{"QP Code", "Subject Name"},
		{"Q1", "Math"},
	}))
	writeFile(t, filepath.Join(base, "templates", "remarks_sheet.xlsx"), []byte("template"))
	writeFile(t, filepath.Join(base, "qp_pdfs", "UG", "q1.pdf"), []byte("%PDF-fake"))

	repo := NewDatasetRepository(base, nil)
	dataset, err := repo.Load("ug")
	require.NoError(t, err)

	assert.Equal(t, "UG", dataset.Category)
	assert.Len(t, dataset.Rooms, 1)
	require.Len(t, dataset.Roster, 2)
	assert.Equal(t, "CSE 2024", dataset.Roster[0].SourceFile)
	assert.Equal(t, "ECE 2024", dataset.Roster[1].SourceFile)
	assert.Len(t, dataset.Mapping, 1)
	assert.NotEmpty(t, dataset.Template)
	require.Contains(t, dataset.QPFiles, "Q1")
	assert.Empty(t, dataset.Warnings)
	assert.False(t, dataset.Summarize().LoadedAt.IsZero())
}

func TestDatasetRepositoryLoadPartialDirectoryWarns(t *testing.T) {
	repo := NewDatasetRepository(t.TempDir(), nil)
	dataset, err := repo.Load("PG")
	require.NoError(t, err)

	assert.Empty(t, dataset.Rooms)
	assert.Empty(t, dataset.Roster)
	assert.Empty(t, dataset.QPFiles)
	assert.GreaterOrEqual(t, len(dataset.Warnings), 3)
}
