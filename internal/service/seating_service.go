package service

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-hall-api/internal/models"
	appErrors "github.com/noah-isme/exam-hall-api/pkg/errors"
)

// SeatingService expands room capacities into seat slots and assigns the
// roster to them. Both operations are pure: identical inputs yield
// identical outputs.
type SeatingService struct {
	logger *zap.Logger
}

// NewSeatingService builds a SeatingService.
func NewSeatingService(logger *zap.Logger) *SeatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatingService{logger: logger}
}

// TotalCapacity sums the seat capacity of the selected rooms, counting
// duplicated selections again.
func TotalCapacity(rooms []models.RoomCapacity, orderedRoomIDs []string) int {
	byID := capacityIndex(rooms)
	total := 0
	for _, id := range orderedRoomIDs {
		if room, ok := byID[id]; ok {
			total += room.Seats()
		}
	}
	return total
}

// BuildGrid expands the selected rooms into slots in block-interleaved
// order (all Left seats across rooms and benches, then Right, then Center;
// rooms in selection order, benches ascending) and zips the roster against
// the slot list index-for-index. Students beyond total capacity are left
// unseated; callers observe the overflow through the seated/roster counts.
func (s *SeatingService) BuildGrid(rooms []models.RoomCapacity, orderedRoomIDs []string, roster []models.StudentRecord, dayLabel string) ([]models.SeatSlot, error) {
	if len(orderedRoomIDs) == 0 {
		return nil, appErrors.ErrNoRoomsSelected
	}

	byID := capacityIndex(rooms)
	for _, id := range orderedRoomIDs {
		if _, ok := byID[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %q is not in the capacity table", id))
		}
	}

	slots := make([]models.SeatSlot, 0, TotalCapacity(rooms, orderedRoomIDs))
	for _, seat := range models.AssignmentOrder {
		for _, id := range orderedRoomIDs {
			room := byID[id]
			for bench := room.BenchStart; bench <= room.BenchEnd; bench++ {
				slots = append(slots, models.SeatSlot{
					RoomID:      id,
					BenchNo:     bench,
					Seat:        seat,
					ClassNo:     models.Sentinel,
					StudentName: models.Sentinel,
					Subjects:    models.Sentinel,
				})
			}
		}
	}

	for i := range slots {
		if i >= len(roster) {
			break
		}
		student := roster[i]
		slots[i].ClassNo = student.ClassNo
		slots[i].StudentName = student.StudentName
		if dayLabel == "" {
			continue
		}
		raw, ok := student.DayColumns[dayLabel]
		if !ok {
			continue
		}
		if subjects := SplitSubjects(raw); len(subjects) > 0 {
			slots[i].Subjects = strings.Join(subjects, ", ")
		}
	}

	seated := len(roster)
	if seated > len(slots) {
		seated = len(slots)
	}
	s.logger.Debug("seat grid built",
		zap.Int("slots", len(slots)),
		zap.Int("seated", seated),
		zap.Int("roster", len(roster)),
	)

	return slots, nil
}

// Pivot reshapes the flat slot list into one row per (room, bench) with
// class numbers keyed by seat position. Rooms keep their selection order,
// benches ascend within a room.
func (s *SeatingService) Pivot(slots []models.SeatSlot) []models.PivotRow {
	type benchKey struct {
		room  string
		bench int
	}

	roomOrder := make([]string, 0)
	seen := make(map[string]struct{})
	byBench := make(map[benchKey]map[models.SeatPosition]string)

	for _, slot := range slots {
		if _, ok := seen[slot.RoomID]; !ok {
			seen[slot.RoomID] = struct{}{}
			roomOrder = append(roomOrder, slot.RoomID)
		}
		key := benchKey{room: slot.RoomID, bench: slot.BenchNo}
		if byBench[key] == nil {
			byBench[key] = make(map[models.SeatPosition]string, 3)
		}
		byBench[key][slot.Seat] = slot.ClassNo
	}

	rows := make([]models.PivotRow, 0, len(byBench))
	for _, room := range roomOrder {
		benches := make([]int, 0)
		for key := range byBench {
			if key.room == room {
				benches = append(benches, key.bench)
			}
		}
		sort.Ints(benches)
		for _, bench := range benches {
			rows = append(rows, models.PivotRow{
				RoomID:  room,
				BenchNo: bench,
				Seats:   byBench[benchKey{room: room, bench: bench}],
			})
		}
	}
	return rows
}

// SeatColumns reports which seat positions occur in the pivot rows, in
// display order. The grid always produces all three, but partial views
// stay well formed.
func SeatColumns(rows []models.PivotRow) []models.SeatPosition {
	present := make(map[models.SeatPosition]struct{})
	for _, row := range rows {
		for seat := range row.Seats {
			present[seat] = struct{}{}
		}
	}
	columns := make([]models.SeatPosition, 0, 3)
	for _, seat := range models.DisplayOrder {
		if _, ok := present[seat]; ok {
			columns = append(columns, seat)
		}
	}
	return columns
}

// capacityIndex keeps the first capacity row per room ID, matching the
// source-of-truth convention for duplicated capacity rows.
func capacityIndex(rooms []models.RoomCapacity) map[string]models.RoomCapacity {
	byID := make(map[string]models.RoomCapacity, len(rooms))
	for _, room := range rooms {
		if _, ok := byID[room.RoomID]; !ok {
			byID[room.RoomID] = room
		}
	}
	return byID
}
