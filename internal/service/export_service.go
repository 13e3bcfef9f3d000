package service

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-hall-api/internal/models"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
	"github.com/noah-isme/exam-hall-api/pkg/export"
)

// ExportView names one tabular projection of a seating run.
type ExportView string

const (
	ViewSeatingPlan   ExportView = "seating_plan"
	ViewSeatingDetail ExportView = "seating_detail"
	ViewRoomSummary   ExportView = "room_summary"
	ViewQPDetail      ExportView = "qp_detail"
	ViewQPCount       ExportView = "qp_count"
	ViewHallSummary   ExportView = "hall_summary"
)

// ExportFormat names a supported render target.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatPDF  ExportFormat = "pdf"
)

// ExportFile is a rendered view ready to hand to the transport layer.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders seating-run views as CSV, XLSX, or PDF files.
type ExportService struct {
	csv    *export.CSVExporter
	xlsx   *export.XLSXExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService builds an ExportService with all three renderers.
func NewExportService(logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		csv:    export.NewCSVExporter(),
		xlsx:   export.NewXLSXExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// Export renders the requested view of the run in the requested format.
func (s *ExportService) Export(run *models.SeatingRun, view ExportView, format ExportFormat) (*ExportFile, error) {
	dataset, title, err := s.Dataset(run, view)
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s_%s", strings.ReplaceAll(strings.ToLower(title), " ", "_"), run.ID)
	var file ExportFile
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
		file = ExportFile{Filename: base + ".csv", ContentType: "text/csv", Data: data}
	case FormatXLSX:
		data, err := s.xlsx.Render(dataset, title)
		if err != nil {
			return nil, fmt.Errorf("render xlsx: %w", err)
		}
		file = ExportFile{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}
	case FormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		file = ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Data: data}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	s.logger.Debug("run view exported",
		zap.String("run_id", run.ID),
		zap.String("view", string(view)),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &file, nil
}

// Dataset projects the run into the named tabular view.
func (s *ExportService) Dataset(run *models.SeatingRun, view ExportView) (export.Dataset, string, error) {
	switch view {
	case ViewSeatingPlan:
		return seatingPlanDataset(run), "Seating Plan", nil
	case ViewSeatingDetail:
		return seatingDetailDataset(run), "Detailed Seating", nil
	case ViewRoomSummary:
		return roomSummaryDataset(run), "Room Summary", nil
	case ViewQPDetail:
		return qpDetailDataset(run), "QP Summary", nil
	case ViewQPCount:
		return qpCountDataset(run), "QP Counts", nil
	case ViewHallSummary:
		return hallSummaryDataset(run), "Hall Summary", nil
	default:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export view %q", view))
	}
}

// seatingPlanDataset is the pivoted grid: one row per bench, one column
// per seat position that occurs in the run.
func seatingPlanDataset(run *models.SeatingRun) export.Dataset {
	columns := SeatColumns(run.Pivot)
	headers := make([]string, 0, 2+len(columns))
	headers = append(headers, "Room", "Bench")
	for _, seat := range columns {
		headers = append(headers, string(seat))
	}

	rows := make([]map[string]string, 0, len(run.Pivot))
	for _, row := range run.Pivot {
		record := map[string]string{
			"Room":  row.RoomID,
			"Bench": strconv.Itoa(row.BenchNo),
		}
		for _, seat := range columns {
			value, ok := row.Seats[seat]
			if !ok {
				value = models.Sentinel
			}
			record[string(seat)] = value
		}
		rows = append(rows, record)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func seatingDetailDataset(run *models.SeatingRun) export.Dataset {
	rows := make([]map[string]string, 0, len(run.Slots))
	for _, slot := range run.Slots {
		rows = append(rows, map[string]string{
			"Room":         slot.RoomID,
			"Bench":        strconv.Itoa(slot.BenchNo),
			"Seat":         string(slot.Seat),
			"Class No":     slot.ClassNo,
			"Student Name": slot.StudentName,
			"Subjects":     slot.Subjects,
		})
	}
	return export.Dataset{
		Headers: []string{"Room", "Bench", "Seat", "Class No", "Student Name", "Subjects"},
		Rows:    rows,
	}
}

func roomSummaryDataset(run *models.SeatingRun) export.Dataset {
	rows := make([]map[string]string, 0, len(run.Demand.RoomSummaries))
	for _, summary := range run.Demand.RoomSummaries {
		rows = append(rows, map[string]string{
			"Room":             summary.RoomID,
			"Total Students":   strconv.Itoa(summary.TotalStudents),
			"Subjects in Room": summary.Subjects,
		})
	}
	return export.Dataset{
		Headers: []string{"Room", "Total Students", "Subjects in Room"},
		Rows:    rows,
	}
}

func qpDetailDataset(run *models.SeatingRun) export.Dataset {
	rows := make([]map[string]string, 0, len(run.Demand.QPDetail))
	for _, record := range run.Demand.QPDetail {
		rows = append(rows, map[string]string{
			"Room":    record.RoomID,
			"Bench":   strconv.Itoa(record.BenchNo),
			"Seat":    string(record.Seat),
			"Subject": record.Subject,
		})
	}
	return export.Dataset{
		Headers: []string{"Room", "Bench", "Seat", "Subject"},
		Rows:    rows,
	}
}

func qpCountDataset(run *models.SeatingRun) export.Dataset {
	rows := make([]map[string]string, 0, len(run.Demand.QPCounts))
	for _, group := range run.Demand.QPCounts {
		rows = append(rows, map[string]string{
			"Room":                 group.RoomID,
			"Subject":              group.Subject,
			"QP_Needed":            strconv.Itoa(group.QPNeeded),
			"Bench_Seat_Locations": strings.Join(group.SeatLocations, ", "),
		})
	}
	return export.Dataset{
		Headers: []string{"Room", "Subject", "QP_Needed", "Bench_Seat_Locations"},
		Rows:    rows,
	}
}

func hallSummaryDataset(run *models.SeatingRun) export.Dataset {
	rows := make([]map[string]string, 0, len(run.Demand.HallSummaries))
	for _, summary := range run.Demand.HallSummaries {
		rows = append(rows, map[string]string{
			"Room":             summary.RoomID,
			"Subject":          summary.Subject,
			"Total QPs Needed": strconv.Itoa(summary.TotalQPs),
		})
	}
	return export.Dataset{
		Headers: []string{"Room", "Subject", "Total QPs Needed"},
		Rows:    rows,
	}
}
