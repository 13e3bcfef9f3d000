package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

func TestAggregateRoundTrip(t *testing.T) {
	// 2 rooms: Room A benches 1-2 (6 seats), Room B bench 1 (3 seats),
	// 5 students, only student 1 has a subject.
	seating := NewSeatingService(nil)
	roster := rosterOf(5)
	roster[0].DayColumns = map[string]string{"DAY1": "Math"}

	slots, err := seating.BuildGrid(twoRooms(), []string{"Room A", "Room B"}, roster, "DAY1")
	require.NoError(t, err)
	require.Len(t, slots, 9)

	result := NewDemandService(nil).Aggregate(slots, []string{"Room A", "Room B"})

	require.Len(t, result.RoomSummaries, 2)
	// Student 1 takes the first Left slot, which is Room A bench 1.
	assert.Equal(t, "Room A", result.RoomSummaries[0].RoomID)
	assert.Equal(t, 4, result.RoomSummaries[0].TotalStudents)
	assert.Equal(t, "MATH", result.RoomSummaries[0].Subjects)
	assert.Equal(t, "Room B", result.RoomSummaries[1].RoomID)
	assert.Equal(t, 1, result.RoomSummaries[1].TotalStudents)
	assert.Equal(t, "", result.RoomSummaries[1].Subjects)

	require.Len(t, result.QPDetail, 1)
	assert.Equal(t, models.QPDemandRecord{RoomID: "Room A", BenchNo: 1, Seat: models.SeatLeft, Subject: "MATH"}, result.QPDetail[0])

	require.Len(t, result.QPCounts, 1)
	assert.Equal(t, 1, result.QPCounts[0].QPNeeded)
	assert.Equal(t, []string{"1-Left"}, result.QPCounts[0].SeatLocations)

	require.Len(t, result.HallSummaries, 1)
	assert.Equal(t, result.QPCounts[0].QPNeeded, result.HallSummaries[0].TotalQPs)
}

func TestAggregateCountsMatchDetail(t *testing.T) {
	seating := NewSeatingService(nil)
	roster := rosterOf(6)
	roster[0].DayColumns = map[string]string{"DAY1": "math, physics"}
	roster[1].DayColumns = map[string]string{"DAY1": "math"}
	roster[3].DayColumns = map[string]string{"DAY1": "physics"}

	slots, err := seating.BuildGrid(twoRooms(), []string{"Room A", "Room B"}, roster, "DAY1")
	require.NoError(t, err)

	result := NewDemandService(nil).Aggregate(slots, []string{"Room A", "Room B"})

	// Every grouped count equals the number of detail rows sharing its key.
	for _, group := range result.QPCounts {
		n := 0
		for _, record := range result.QPDetail {
			if record.RoomID == group.RoomID && record.Subject == group.Subject {
				n++
			}
		}
		assert.Equal(t, n, group.QPNeeded, "%s/%s", group.RoomID, group.Subject)
		assert.Len(t, group.SeatLocations, group.QPNeeded)
	}
}

func TestAggregateMultiSubjectSlot(t *testing.T) {
	slots := []models.SeatSlot{
		{RoomID: "Hall 1", BenchNo: 4, Seat: models.SeatCenter, ClassNo: "C01", StudentName: "One", Subjects: "MATH, STATS"},
	}

	result := NewDemandService(nil).Aggregate(slots, []string{"Hall 1"})
	require.Len(t, result.QPDetail, 2)
	assert.Equal(t, "MATH", result.QPDetail[0].Subject)
	assert.Equal(t, "STATS", result.QPDetail[1].Subject)

	require.Len(t, result.QPCounts, 2)
	assert.Equal(t, []string{"4-Center"}, result.QPCounts[0].SeatLocations)
}

func TestAggregateEmptyButWellFormed(t *testing.T) {
	seating := NewSeatingService(nil)
	slots, err := seating.BuildGrid(twoRooms(), []string{"Room A"}, rosterOf(3), "")
	require.NoError(t, err)

	result := NewDemandService(nil).Aggregate(slots, []string{"Room A"})

	require.NotNil(t, result.QPDetail)
	require.NotNil(t, result.QPCounts)
	require.NotNil(t, result.HallSummaries)
	assert.Empty(t, result.QPDetail)
	assert.Empty(t, result.QPCounts)
	assert.Empty(t, result.HallSummaries)

	require.Len(t, result.RoomSummaries, 1)
	assert.Equal(t, 3, result.RoomSummaries[0].TotalStudents)
	assert.Equal(t, "", result.RoomSummaries[0].Subjects)
}

func TestAggregateDeterministic(t *testing.T) {
	seating := NewSeatingService(nil)
	roster := rosterOf(9)
	for i := range roster {
		roster[i].DayColumns = map[string]string{"DAY1": "zeta, alpha"}
	}
	slots, err := seating.BuildGrid(twoRooms(), []string{"Room B", "Room A"}, roster, "DAY1")
	require.NoError(t, err)

	svc := NewDemandService(nil)
	first := svc.Aggregate(slots, []string{"Room B", "Room A"})
	second := svc.Aggregate(slots, []string{"Room B", "Room A"})
	assert.Equal(t, first, second)

	// Rooms keep selection order, subjects sort within a room.
	require.Len(t, first.QPCounts, 4)
	assert.Equal(t, "Room B", first.QPCounts[0].RoomID)
	assert.Equal(t, "ALPHA", first.QPCounts[0].Subject)
	assert.Equal(t, "ZETA", first.QPCounts[1].Subject)
	assert.Equal(t, "Room A", first.QPCounts[2].RoomID)
}
