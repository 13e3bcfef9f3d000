package models

// QPDemandRecord is one (slot, subject) pair: a single seated student
// needing a single question paper.
type QPDemandRecord struct {
	RoomID  string       `json:"room"`
	BenchNo int          `json:"bench"`
	Seat    SeatPosition `json:"seat"`
	Subject string       `json:"subject"`
}

// RoomSummary aggregates one room: seated head count and the sorted,
// de-duplicated subject list present in the room.
type RoomSummary struct {
	RoomID        string `json:"room"`
	TotalStudents int    `json:"total_students"`
	Subjects      string `json:"subjects_in_room"`
}

// RoomSubjectDemand groups demand rows by (room, subject). SeatLocations
// lists "bench-seat" strings in the encounter order of the detail rows.
type RoomSubjectDemand struct {
	RoomID        string   `json:"room"`
	Subject       string   `json:"subject"`
	QPNeeded      int      `json:"qp_needed"`
	SeatLocations []string `json:"bench_seat_locations"`
}

// HallSummary carries the same counts as RoomSubjectDemand in the simpler
// historical shape downstream consumers expect.
type HallSummary struct {
	RoomID   string `json:"room"`
	Subject  string `json:"subject"`
	TotalQPs int    `json:"total_qps_needed"`
}

// DemandResult bundles the four aggregated views derived from a seat grid.
// All slices are non-nil; with no subjects seated they are empty but well
// formed.
type DemandResult struct {
	RoomSummaries []RoomSummary       `json:"room_summaries"`
	QPDetail      []QPDemandRecord    `json:"qp_detail"`
	QPCounts      []RoomSubjectDemand `json:"qp_counts"`
	HallSummaries []HallSummary       `json:"hall_summaries"`
}
