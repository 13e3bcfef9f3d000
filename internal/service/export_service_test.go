package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

func exportRun(t *testing.T) *models.SeatingRun {
	t.Helper()
	roster := rosterOf(5)
	roster[0].DayColumns = map[string]string{"DAY1": "math"}
	roster[2].DayColumns = map[string]string{"DAY1": "physics, math"}

	run, err := newRunService(nil).Generate(context.Background(), GenerateParams{
		DayLabel:       "DAY1",
		Rooms:          twoRooms(),
		OrderedRoomIDs: []string{"Room A", "Room B"},
		Roster:         roster,
	})
	require.NoError(t, err)
	return run
}

func TestExportSeatingPlanDataset(t *testing.T) {
	run := exportRun(t)
	svc := NewExportService(nil)

	dataset, title, err := svc.Dataset(run, ViewSeatingPlan)
	require.NoError(t, err)
	assert.Equal(t, "Seating Plan", title)
	assert.Equal(t, []string{"Room", "Bench", "Left", "Center", "Right"}, dataset.Headers)
	require.Len(t, dataset.Rows, 3)

	assert.Equal(t, "Room A", dataset.Rows[0]["Room"])
	assert.Equal(t, "1", dataset.Rows[0]["Bench"])
	assert.Equal(t, "C01", dataset.Rows[0]["Left"])
	assert.Equal(t, models.Sentinel, dataset.Rows[0]["Center"])
}

func TestExportDetailAndDemandDatasets(t *testing.T) {
	run := exportRun(t)
	svc := NewExportService(nil)

	detail, _, err := svc.Dataset(run, ViewSeatingDetail)
	require.NoError(t, err)
	assert.Len(t, detail.Rows, len(run.Slots))

	// Student 3 sits in Room B: Left seats fill Room A benches 1-2 first.
	rooms, _, err := svc.Dataset(run, ViewRoomSummary)
	require.NoError(t, err)
	require.Len(t, rooms.Rows, 2)
	assert.Equal(t, "MATH", rooms.Rows[0]["Subjects in Room"])
	assert.Equal(t, "MATH, PHYSICS", rooms.Rows[1]["Subjects in Room"])

	qpDetail, _, err := svc.Dataset(run, ViewQPDetail)
	require.NoError(t, err)
	assert.Len(t, qpDetail.Rows, len(run.Demand.QPDetail))

	counts, _, err := svc.Dataset(run, ViewQPCount)
	require.NoError(t, err)
	require.Len(t, counts.Rows, len(run.Demand.QPCounts))
	assert.NotEmpty(t, counts.Rows[0]["Bench_Seat_Locations"])

	halls, _, err := svc.Dataset(run, ViewHallSummary)
	require.NoError(t, err)
	assert.Len(t, halls.Rows, len(run.Demand.HallSummaries))
}

func TestExportCSVFormat(t *testing.T) {
	run := exportRun(t)
	svc := NewExportService(nil)

	file, err := svc.Export(run, ViewRoomSummary, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	assert.True(t, strings.HasPrefix(string(file.Data), "Room,Total Students,Subjects in Room\n"))
}

func TestExportXLSXFormat(t *testing.T) {
	run := exportRun(t)
	svc := NewExportService(nil)

	file, err := svc.Export(run, ViewSeatingPlan, FormatXLSX)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Filename, ".xlsx"))

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows("Seating Plan")
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 3 benches
	assert.Equal(t, []string{"Room", "Bench", "Left", "Center", "Right"}, rows[0])
}

func TestExportPDFFormat(t *testing.T) {
	run := exportRun(t)
	svc := NewExportService(nil)

	file, err := svc.Export(run, ViewQPCount, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportRejectsUnknownViewAndFormat(t *testing.T) {
	run := exportRun(t)
	svc := NewExportService(nil)

	_, _, err := svc.Dataset(run, ExportView("nope"))
	require.Error(t, err)

	_, err = svc.Export(run, ViewSeatingPlan, ExportFormat("docx"))
	require.Error(t, err)
}
