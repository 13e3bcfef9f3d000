package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

func makeRemarkTemplate(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "St. Example College"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "End Semester Examination"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "Date:"))
	require.NoError(t, f.SetCellValue(sheet, "E3", "Room:"))
	require.NoError(t, f.SetCellValue(sheet, "A6", "Bench"))
	require.NoError(t, f.SetCellValue(sheet, "B6", "Left"))
	require.NoError(t, f.SetCellValue(sheet, "D6", "Center"))
	require.NoError(t, f.SetCellValue(sheet, "F6", "Right"))
	require.NoError(t, f.SetCellValue(sheet, "A25", "Class"))
	require.NoError(t, f.SetCellValue(sheet, "B25", "From"))
	require.NoError(t, f.SetCellValue(sheet, "C25", "To"))
	require.NoError(t, f.SetCellValue(sheet, "D25", "No. of Students"))
	require.NoError(t, f.SetCellValue(sheet, "E26", "Total Students"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func remarkSlots() []models.SeatSlot {
	return []models.SeatSlot{
		{RoomID: "Room A", BenchNo: 1, Seat: models.SeatLeft, ClassNo: "C01", StudentName: "One"},
		{RoomID: "Room A", BenchNo: 1, Seat: models.SeatRight, ClassNo: "C03", StudentName: "Three"},
		{RoomID: "Room A", BenchNo: 2, Seat: models.SeatLeft, ClassNo: "C02", StudentName: "Two"},
		{RoomID: "Room A", BenchNo: 2, Seat: models.SeatCenter, ClassNo: models.Sentinel, StudentName: models.Sentinel},
	}
}

func TestRemarkGenerateFillsRoomSheet(t *testing.T) {
	svc := NewRemarkService(nil)
	out, err := svc.Generate(bytes.NewReader(makeRemarkTemplate(t)), remarkSlots(), RemarkParams{
		ExamTitle: "Model Examination March 2026",
		ExamDate:  "2026-03-10",
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	require.Contains(t, f.GetSheetList(), "Room A")
	assert.NotContains(t, f.GetSheetList(), "Master_Template")

	get := func(cell string) string {
		v, err := f.GetCellValue("Room A", cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Model Examination March 2026", get("A2"))
	assert.Equal(t, "2026-03-10", get("B3"))
	assert.Equal(t, "Room A", get("F3"))

	// Bench block starts at row 7: bench numbers in A, seats in B/D/F.
	assert.Equal(t, "1", get("A7"))
	assert.Equal(t, "C01", get("B7"))
	assert.Equal(t, "C03", get("F7"))
	assert.Equal(t, "2", get("A8"))
	assert.Equal(t, "C02", get("B8"))
	assert.Equal(t, "", get("D8"))
}

func TestRemarkGenerateBatchSummary(t *testing.T) {
	svc := NewRemarkService(nil)
	out, err := svc.Generate(bytes.NewReader(makeRemarkTemplate(t)), remarkSlots(), RemarkParams{
		ExamDate: "2026-03-10",
		BatchByClassNo: map[string]string{
			"C01": "CSE 2024",
			"C02": "CSE 2024",
		},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	get := func(cell string) string {
		v, err := f.GetCellValue("Room A", cell)
		require.NoError(t, err)
		return v
	}

	// Summary rows sit below the "Class" header row at 25, in batch-name
	// order; C03 has no batch and falls back to Unknown Class.
	assert.Equal(t, "Class", get("A25"))
	assert.Equal(t, "CSE 2024", get("A26"))
	assert.Equal(t, "C01", get("B26"))
	assert.Equal(t, "C02", get("C26"))
	assert.Equal(t, "2", get("D26"))
	assert.Equal(t, "Unknown Class", get("A27"))
	assert.Equal(t, "C03", get("B27"))
	assert.Equal(t, "1", get("D27"))

	// The labelled total picks up the seated count.
	assert.Equal(t, "3", get("F26"))
}

func TestRemarkGenerateInsertsRowsForLongRooms(t *testing.T) {
	slots := make([]models.SeatSlot, 0, 25)
	for bench := 1; bench <= 25; bench++ {
		slots = append(slots, models.SeatSlot{
			RoomID: "Big Hall", BenchNo: bench, Seat: models.SeatLeft,
			ClassNo: "C01", StudentName: "One",
		})
	}

	svc := NewRemarkService(nil)
	out, err := svc.Generate(bytes.NewReader(makeRemarkTemplate(t)), slots, RemarkParams{ExamDate: "2026-03-10"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	get := func(cell string) string {
		v, err := f.GetCellValue("Big Hall", cell)
		require.NoError(t, err)
		return v
	}

	// 25 benches need 7 rows more than the 18 the template offers; the
	// footer shifts down by that plus a 2-row gap.
	assert.Equal(t, "25", get("A31"))
	assert.Equal(t, "Class", get("A34"))
}

func TestRemarkGenerateOneSheetPerRoom(t *testing.T) {
	slots := []models.SeatSlot{
		{RoomID: "Room A", BenchNo: 1, Seat: models.SeatLeft, ClassNo: "C01", StudentName: "One"},
		{RoomID: "Room B", BenchNo: 1, Seat: models.SeatLeft, ClassNo: "C02", StudentName: "Two"},
	}

	svc := NewRemarkService(nil)
	out, err := svc.Generate(bytes.NewReader(makeRemarkTemplate(t)), slots, RemarkParams{ExamDate: "2026-03-10"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	list := f.GetSheetList()
	assert.Contains(t, list, "Room A")
	assert.Contains(t, list, "Room B")
	assert.NotContains(t, list, "Master_Template")
}

func TestRemarkGenerateRejectsEmptyGrid(t *testing.T) {
	svc := NewRemarkService(nil)
	_, err := svc.Generate(bytes.NewReader(makeRemarkTemplate(t)), nil, RemarkParams{})
	require.Error(t, err)
}

func TestRemarkGenerateRejectsBadTemplate(t *testing.T) {
	svc := NewRemarkService(nil)
	_, err := svc.Generate(bytes.NewReader([]byte("not a workbook")), remarkSlots(), RemarkParams{})
	require.Error(t, err)
}
