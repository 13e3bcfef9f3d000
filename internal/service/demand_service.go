package service

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

// DemandService derives question-paper demand views from a seat grid.
type DemandService struct {
	logger *zap.Logger
}

// NewDemandService builds a DemandService.
func NewDemandService(logger *zap.Logger) *DemandService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemandService{logger: logger}
}

// Aggregate computes the per-room summary, the flat (slot, subject) detail,
// the grouped per-(room, subject) counts with seat locations, and the hall
// summary. With no subjects in the grid every view is empty but well
// formed. Rooms keep selection order; subjects sort lexicographically
// within a room so the output is reproducible.
func (s *DemandService) Aggregate(slots []models.SeatSlot, orderedRoomIDs []string) models.DemandResult {
	rooms := uniqueInOrder(orderedRoomIDs)

	detail := make([]models.QPDemandRecord, 0)
	for _, slot := range slots {
		if slot.Subjects == models.Sentinel {
			continue
		}
		for _, subject := range SplitSubjects(slot.Subjects) {
			detail = append(detail, models.QPDemandRecord{
				RoomID:  slot.RoomID,
				BenchNo: slot.BenchNo,
				Seat:    slot.Seat,
				Subject: subject,
			})
		}
	}

	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		total := 0
		subjectSet := make(map[string]struct{})
		for _, slot := range slots {
			if slot.RoomID != room {
				continue
			}
			if slot.Occupied() {
				total++
			}
			if slot.Subjects == models.Sentinel {
				continue
			}
			for _, subject := range SplitSubjects(slot.Subjects) {
				subjectSet[subject] = struct{}{}
			}
		}
		subjects := make([]string, 0, len(subjectSet))
		for subject := range subjectSet {
			subjects = append(subjects, subject)
		}
		sort.Strings(subjects)
		summaries = append(summaries, models.RoomSummary{
			RoomID:        room,
			TotalStudents: total,
			Subjects:      strings.Join(subjects, ", "),
		})
	}

	counts := s.groupCounts(detail, rooms)

	halls := make([]models.HallSummary, 0, len(counts))
	for _, group := range counts {
		halls = append(halls, models.HallSummary{
			RoomID:   group.RoomID,
			Subject:  group.Subject,
			TotalQPs: group.QPNeeded,
		})
	}

	return models.DemandResult{
		RoomSummaries: summaries,
		QPDetail:      detail,
		QPCounts:      counts,
		HallSummaries: halls,
	}
}

// groupCounts groups detail rows by (room, subject). Seat locations keep
// the encounter order of the detail rows.
func (s *DemandService) groupCounts(detail []models.QPDemandRecord, rooms []string) []models.RoomSubjectDemand {
	type groupKey struct {
		room    string
		subject string
	}
	groups := make(map[groupKey]*models.RoomSubjectDemand)
	subjectsByRoom := make(map[string][]string)

	for _, record := range detail {
		key := groupKey{room: record.RoomID, subject: record.Subject}
		group, ok := groups[key]
		if !ok {
			group = &models.RoomSubjectDemand{RoomID: record.RoomID, Subject: record.Subject}
			groups[key] = group
			subjectsByRoom[record.RoomID] = append(subjectsByRoom[record.RoomID], record.Subject)
		}
		group.QPNeeded++
		group.SeatLocations = append(group.SeatLocations, fmt.Sprintf("%d-%s", record.BenchNo, record.Seat))
	}

	counts := make([]models.RoomSubjectDemand, 0, len(groups))
	for _, room := range rooms {
		subjects := subjectsByRoom[room]
		sort.Strings(subjects)
		for _, subject := range subjects {
			counts = append(counts, *groups[groupKey{room: room, subject: subject}])
		}
	}
	return counts
}

func uniqueInOrder(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
