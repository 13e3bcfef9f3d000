package service

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-hall-api/internal/models"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
)

const (
	remarkStartRow      = 7
	remarkFooterDefault = 25
	masterSheetName     = "Master_Template"
)

// Seat positions map to fixed template columns: Left=B, Center=D, Right=F.
var remarkSeatColumn = map[models.SeatPosition]int{
	models.SeatLeft:   2,
	models.SeatCenter: 4,
	models.SeatRight:  6,
}

// RemarkParams carries the header fields and the class-number to batch-name
// mapping used for the footer summary.
type RemarkParams struct {
	ExamTitle      string
	ExamDate       string
	BatchByClassNo map[string]string
}

// RemarkService populates a remark-sheet workbook template from a seat
// grid: one sheet per room, bench rows, seat columns, and a per-batch
// footer summary. It only reads the grid; the seating core stays untouched.
type RemarkService struct {
	logger *zap.Logger
}

// NewRemarkService builds a RemarkService.
func NewRemarkService(logger *zap.Logger) *RemarkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemarkService{logger: logger}
}

// Generate fills the template with one sheet per room present in the grid
// and returns the workbook bytes.
func (s *RemarkService) Generate(template io.Reader, slots []models.SeatSlot, params RemarkParams) ([]byte, error) {
	f, err := excelize.OpenReader(template)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "remark template is not a readable workbook")
	}
	defer f.Close() //nolint:errcheck

	original := f.GetSheetName(0)
	if original == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "remark template has no sheets")
	}
	if original != masterSheetName {
		if err := f.SetSheetName(original, masterSheetName); err != nil {
			return nil, fmt.Errorf("rename master sheet: %w", err)
		}
	}
	masterIdx, err := f.GetSheetIndex(masterSheetName)
	if err != nil {
		return nil, fmt.Errorf("locate master sheet: %w", err)
	}

	rooms, slotsByRoom := groupSlotsByRoom(slots)
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "seat grid is empty")
	}

	for _, room := range rooms {
		if err := s.fillRoomSheet(f, masterIdx, room, slotsByRoom[room], params); err != nil {
			return nil, fmt.Errorf("fill sheet for room %s: %w", room, err)
		}
	}

	if err := f.DeleteSheet(masterSheetName); err != nil {
		return nil, fmt.Errorf("drop master sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write remark workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *RemarkService) fillRoomSheet(f *excelize.File, masterIdx int, room string, slots []models.SeatSlot, params RemarkParams) error {
	sheet := sheetNameForRoom(room)
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.CopySheet(masterIdx, idx); err != nil {
		return fmt.Errorf("copy template sheet: %w", err)
	}

	if err := s.fillHeader(f, sheet, room, params); err != nil {
		return err
	}

	footerRow := s.locateFooterRow(f, sheet)

	minBench, maxBench := benchRange(slots)
	needed := maxBench - minBench + 1
	available := footerRow - remarkStartRow
	if needed > available {
		extra := needed - available + 2
		if err := f.InsertRows(sheet, footerRow, extra); err != nil {
			return fmt.Errorf("insert bench rows: %w", err)
		}
		footerRow += extra
	}

	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("build cell style: %w", err)
	}
	benchStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("build bench style: %w", err)
	}

	for bench := minBench; bench <= maxBench; bench++ {
		row := remarkStartRow + (bench - minBench)
		cell := cellName(1, row)
		if err := f.SetCellValue(sheet, cell, bench); err != nil {
			return fmt.Errorf("write bench number: %w", err)
		}
		_ = f.SetCellStyle(sheet, cell, cell, benchStyle)

		for _, slot := range slots {
			if slot.BenchNo != bench || !slot.Occupied() {
				continue
			}
			col, ok := remarkSeatColumn[slot.Seat]
			if !ok {
				continue
			}
			seatCell := cellName(col, row)
			if err := f.SetCellValue(sheet, seatCell, slot.ClassNo); err != nil {
				return fmt.Errorf("write class number: %w", err)
			}
			_ = f.SetCellStyle(sheet, seatCell, seatCell, centered)
		}
	}

	return s.fillFooter(f, sheet, footerRow, slots, params)
}

func (s *RemarkService) fillHeader(f *excelize.File, sheet, room string, params RemarkParams) error {
	if err := f.SetCellValue(sheet, "B3", params.ExamDate); err != nil {
		return fmt.Errorf("write exam date: %w", err)
	}
	if err := f.SetCellValue(sheet, "F3", room); err != nil {
		return fmt.Errorf("write room name: %w", err)
	}
	if params.ExamTitle == "" {
		return nil
	}
	a2, _ := f.GetCellValue(sheet, "A2")
	a1, _ := f.GetCellValue(sheet, "A1")
	switch {
	case strings.Contains(a2, "Examination"):
		return f.SetCellValue(sheet, "A2", params.ExamTitle)
	case a1 != "":
		return f.SetCellValue(sheet, "A1", params.ExamTitle)
	}
	return nil
}

// locateFooterRow finds the summary header row, marked by "Class" in
// column A below the bench block.
func (s *RemarkService) locateFooterRow(f *excelize.File, sheet string) int {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return remarkFooterDefault
	}
	for r := remarkStartRow; r <= len(rows); r++ {
		value, err := f.GetCellValue(sheet, cellName(1, r))
		if err == nil && strings.TrimSpace(value) == "Class" {
			return r
		}
	}
	return remarkFooterDefault
}

func (s *RemarkService) fillFooter(f *excelize.File, sheet string, footerRow int, slots []models.SeatSlot, params RemarkParams) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
	})
	if err != nil {
		return fmt.Errorf("build footer style: %w", err)
	}
	for col := 1; col <= 4; col++ {
		cell := cellName(col, footerRow)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	seated := make([]models.SeatSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Occupied() {
			seated = append(seated, slot)
		}
	}

	if err := writeTotalStudents(f, sheet, footerRow, len(seated)); err != nil {
		return err
	}

	type batchStats struct {
		count int
		min   string
		max   string
	}
	stats := make(map[string]*batchStats)
	for _, slot := range seated {
		batch, ok := params.BatchByClassNo[strings.TrimSpace(slot.ClassNo)]
		if !ok || batch == "" {
			batch = "Unknown Class"
		}
		st, ok := stats[batch]
		if !ok {
			st = &batchStats{min: slot.ClassNo, max: slot.ClassNo}
			stats[batch] = st
		}
		st.count++
		if slot.ClassNo < st.min {
			st.min = slot.ClassNo
		}
		if slot.ClassNo > st.max {
			st.max = slot.ClassNo
		}
	}

	batches := make([]string, 0, len(stats))
	for batch := range stats {
		batches = append(batches, batch)
	}
	sort.Strings(batches)

	leftWrapped, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("build summary style: %w", err)
	}
	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("build summary style: %w", err)
	}

	row := footerRow + 1
	for _, batch := range batches {
		st := stats[batch]
		values := []struct {
			col   int
			value interface{}
			style int
		}{
			{1, batch, leftWrapped},
			{2, st.min, centered},
			{3, st.max, centered},
			{4, st.count, centered},
		}
		for _, v := range values {
			cell := cellName(v.col, row)
			if err := f.SetCellValue(sheet, cell, v.value); err != nil {
				return fmt.Errorf("write batch summary: %w", err)
			}
			_ = f.SetCellStyle(sheet, cell, cell, v.style)
		}
		row++
	}
	return nil
}

// writeTotalStudents fills the cell right of the "Total Students" label,
// wherever the template placed it below the footer header.
func writeTotalStudents(f *excelize.File, sheet string, footerRow, total int) error {
	for r := footerRow; r <= footerRow+15; r++ {
		for col := 1; col <= 9; col++ {
			value, err := f.GetCellValue(sheet, cellName(col, r))
			if err != nil || !strings.Contains(value, "Total Students") {
				continue
			}
			if err := f.SetCellValue(sheet, cellName(col+1, r), total); err != nil {
				return fmt.Errorf("write total students: %w", err)
			}
			return nil
		}
	}
	return nil
}

func groupSlotsByRoom(slots []models.SeatSlot) ([]string, map[string][]models.SeatSlot) {
	rooms := make([]string, 0)
	byRoom := make(map[string][]models.SeatSlot)
	for _, slot := range slots {
		if _, ok := byRoom[slot.RoomID]; !ok {
			rooms = append(rooms, slot.RoomID)
		}
		byRoom[slot.RoomID] = append(byRoom[slot.RoomID], slot)
	}
	return rooms, byRoom
}

func benchRange(slots []models.SeatSlot) (int, int) {
	if len(slots) == 0 {
		return 0, 0
	}
	min, max := slots[0].BenchNo, slots[0].BenchNo
	for _, slot := range slots[1:] {
		if slot.BenchNo < min {
			min = slot.BenchNo
		}
		if slot.BenchNo > max {
			max = slot.BenchNo
		}
	}
	return min, max
}

// sheetNameForRoom truncates to the 31-character sheet name limit.
func sheetNameForRoom(room string) string {
	if len(room) > 31 {
		return room[:31]
	}
	return room
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return name
}
