package repository

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-hall-api/internal/models"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
)

const (
	roomsWorkbook   = "Room_DB.xlsx"
	remarksTemplate = "remarks_sheet.xlsx"
	mappingFileUG   = "UG Course Code.xlsx"
	mappingFilePG   = "qp_code_pg.xlsx"
	dayColumnPrefix = "DAY"
)

// DatasetRepository loads the static data directory for a category:
//
//	<base>/rooms/Room_DB.xlsx
//	<base>/students/*.xlsx|*.csv
//	<base>/mapping/<category mapping workbook>
//	<base>/templates/remarks_sheet.xlsx
//	<base>/qp_pdfs/<UG|PG>/*.pdf
//
// Missing pieces become dataset warnings rather than errors; malformed
// workbooks that are present fail validation.
type DatasetRepository struct {
	baseDir string
	logger  *zap.Logger
}

// NewDatasetRepository builds a repository over the given data directory.
func NewDatasetRepository(baseDir string, logger *zap.Logger) *DatasetRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetRepository{baseDir: baseDir, logger: logger}
}

// Load reads every dataset piece for the category from disk.
func (r *DatasetRepository) Load(category string) (*models.Dataset, error) {
	category = strings.ToUpper(strings.TrimSpace(category))
	dataset := &models.Dataset{
		Category: category,
		QPFiles:  make(map[string][]byte),
		LoadedAt: time.Now().UTC(),
	}

	rooms, err := r.loadRooms()
	if err != nil {
		dataset.Warnings = append(dataset.Warnings, fmt.Sprintf("room capacity table: %v", err))
	} else {
		dataset.Rooms = rooms
	}

	roster, warnings := r.loadRoster()
	dataset.Roster = roster
	dataset.Warnings = append(dataset.Warnings, warnings...)

	mapping, err := r.loadMapping(category)
	if err != nil {
		dataset.Warnings = append(dataset.Warnings, fmt.Sprintf("QP mapping table: %v", err))
	} else {
		dataset.Mapping = mapping
	}

	template, err := os.ReadFile(filepath.Join(r.baseDir, "templates", remarksTemplate))
	if err != nil {
		dataset.Warnings = append(dataset.Warnings, fmt.Sprintf("remark sheet template: %v", err))
	} else {
		dataset.Template = template
	}

	r.loadQPFiles(category, dataset)

	r.logger.Info("dataset loaded",
		zap.String("category", category),
		zap.Int("rooms", len(dataset.Rooms)),
		zap.Int("students", len(dataset.Roster)),
		zap.Int("mapping_rows", len(dataset.Mapping)),
		zap.Int("qp_files", len(dataset.QPFiles)),
		zap.Int("warnings", len(dataset.Warnings)),
	)
	return dataset, nil
}

func (r *DatasetRepository) loadRooms() ([]models.RoomCapacity, error) {
	path := filepath.Join(r.baseDir, "rooms", roomsWorkbook)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return ParseRoomsWorkbook(f)
}

func (r *DatasetRepository) loadRoster() ([]models.StudentRecord, []string) {
	dir := filepath.Join(r.baseDir, "students")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []string{fmt.Sprintf("student roster: %v", err)}
	}

	roster := make([]models.StudentRecord, 0)
	warnings := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, ".xlsx") && !strings.HasSuffix(lower, ".csv") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("student file %s: %v", name, err))
			continue
		}

		var records []models.StudentRecord
		if strings.HasSuffix(lower, ".csv") {
			records, err = ParseRosterCSV(bytes.NewReader(data), name)
		} else {
			records, err = ParseRosterWorkbook(bytes.NewReader(data), name)
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("student file %s: %v", name, err))
			continue
		}
		roster = append(roster, records...)
	}
	return roster, warnings
}

func (r *DatasetRepository) loadMapping(category string) ([]models.QPMappingEntry, error) {
	file := mappingFileUG
	if category == "PG" {
		file = mappingFilePG
	}
	f, err := os.Open(filepath.Join(r.baseDir, "mapping", file))
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	return ParseMappingWorkbook(f)
}

// loadQPFiles reads the static question paper PDFs. An unknown category
// falls back to both UG and PG directories.
func (r *DatasetRepository) loadQPFiles(category string, dataset *models.Dataset) {
	base := filepath.Join(r.baseDir, "qp_pdfs")
	dirs := []string{filepath.Join(base, "UG"), filepath.Join(base, "PG")}
	if category == "UG" || category == "PG" {
		dirs = []string{filepath.Join(base, category)}
	}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				dataset.Warnings = append(dataset.Warnings, fmt.Sprintf("QP PDF %s: %v", name, err))
				continue
			}
			code := strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name))))
			dataset.QPFiles[code] = data
		}
	}
}

// ParseRoomsWorkbook reads the room capacity table. Required columns:
// Room, Start, End.
func ParseRoomsWorkbook(reader io.Reader) ([]models.RoomCapacity, error) {
	rows, err := workbookRows(reader)
	if err != nil {
		return nil, err
	}
	index, err := headerIndex(rows, "Room", "Start", "End")
	if err != nil {
		return nil, err
	}

	rooms := make([]models.RoomCapacity, 0, len(rows))
	for _, row := range rows[1:] {
		id := strings.TrimSpace(cellAt(row, index["Room"]))
		if id == "" {
			continue
		}
		start, err := strconv.Atoi(strings.TrimSpace(cellAt(row, index["Start"])))
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %q has a non-numeric bench start", id))
		}
		end, err := strconv.Atoi(strings.TrimSpace(cellAt(row, index["End"])))
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %q has a non-numeric bench end", id))
		}
		if end < start {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %q has bench end before bench start", id))
		}
		rooms = append(rooms, models.RoomCapacity{RoomID: id, BenchStart: start, BenchEnd: end})
	}
	return rooms, nil
}

// ParseRosterWorkbook reads one student roster workbook. Required columns:
// Class No, Student Name. Columns whose upper-cased name starts with DAY
// are collected as day subject columns.
func ParseRosterWorkbook(reader io.Reader, sourceFile string) ([]models.StudentRecord, error) {
	rows, err := workbookRows(reader)
	if err != nil {
		return nil, err
	}
	return rosterFromRows(rows, sourceFile)
}

// ParseRosterCSV reads one student roster CSV with the same column rules
// as the workbook form.
func ParseRosterCSV(reader io.Reader, sourceFile string) ([]models.StudentRecord, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable roster CSV")
	}
	return rosterFromRows(rows, sourceFile)
}

func rosterFromRows(rows [][]string, sourceFile string) ([]models.StudentRecord, error) {
	index, err := headerIndex(rows, "Class No", "Student Name")
	if err != nil {
		return nil, err
	}

	dayColumns := make(map[string]int)
	for i, header := range rows[0] {
		name := strings.ToUpper(strings.TrimSpace(header))
		if strings.HasPrefix(name, dayColumnPrefix) {
			dayColumns[name] = i
		}
	}

	batch := strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile))
	records := make([]models.StudentRecord, 0, len(rows))
	for _, row := range rows[1:] {
		classNo := strings.TrimSpace(cellAt(row, index["Class No"]))
		if classNo == "" {
			continue
		}
		record := models.StudentRecord{
			ClassNo:     classNo,
			StudentName: strings.TrimSpace(cellAt(row, index["Student Name"])),
			SourceFile:  batch,
		}
		for day, col := range dayColumns {
			if value := strings.TrimSpace(cellAt(row, col)); value != "" {
				if record.DayColumns == nil {
					record.DayColumns = make(map[string]string, len(dayColumns))
				}
				record.DayColumns[day] = value
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// ParseMappingWorkbook reads the QP code mapping table. Required columns:
// QP Code, Subject Name. Codes are upper-cased and trimmed.
func ParseMappingWorkbook(reader io.Reader) ([]models.QPMappingEntry, error) {
	rows, err := workbookRows(reader)
	if err != nil {
		return nil, err
	}
	index, err := headerIndex(rows, "QP Code", "Subject Name")
	if err != nil {
		return nil, err
	}

	entries := make([]models.QPMappingEntry, 0, len(rows))
	for _, row := range rows[1:] {
		code := strings.ToUpper(strings.TrimSpace(cellAt(row, index["QP Code"])))
		subject := strings.TrimSpace(cellAt(row, index["Subject Name"]))
		if code == "" && subject == "" {
			continue
		}
		entries = append(entries, models.QPMappingEntry{QPCode: code, Subject: subject})
	}
	return entries, nil
}

func workbookRows(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable workbook")
	}
	defer f.Close() //nolint:errcheck

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// headerIndex maps the required column names to their positions in the
// header row, matching case-insensitively on trimmed names.
func headerIndex(rows [][]string, required ...string) (map[string]int, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook has no header row")
	}
	index := make(map[string]int, len(required))
	for _, want := range required {
		found := -1
		for i, header := range rows[0] {
			if strings.EqualFold(strings.TrimSpace(header), want) {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("required column %q is missing", want))
		}
		index[want] = found
	}
	return index, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
