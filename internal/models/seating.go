package models

// SeatPosition identifies one of the three seats on a bench.
type SeatPosition string

const (
	SeatLeft   SeatPosition = "Left"
	SeatCenter SeatPosition = "Center"
	SeatRight  SeatPosition = "Right"
)

// AssignmentOrder is the fixed outer order used when expanding rooms into
// slots: all Left seats across every room and bench first, then all Right,
// then all Center. This block interleaving keeps neighbouring roster rows
// off the same bench.
var AssignmentOrder = []SeatPosition{SeatLeft, SeatRight, SeatCenter}

// DisplayOrder is the seat column order used by pivoted grid views.
var DisplayOrder = []SeatPosition{SeatLeft, SeatCenter, SeatRight}

// Sentinel marks an unfilled student field on a slot.
const Sentinel = "-"

// RoomCapacity describes one room's inclusive bench range. Every bench
// holds exactly three seats.
type RoomCapacity struct {
	RoomID     string `json:"room" validate:"required"`
	BenchStart int    `json:"start"`
	BenchEnd   int    `json:"end"`
}

// Seats returns the total seat capacity of the room.
func (r RoomCapacity) Seats() int {
	return (r.BenchEnd - r.BenchStart + 1) * 3
}

// StudentRecord is one roster row. DayColumns maps a day label (column
// names starting with "DAY") to the raw comma-separated subject list the
// student sits that day. SourceFile identifies the workbook the row came
// from and doubles as the batch name on remark sheets.
type StudentRecord struct {
	ClassNo     string            `json:"class_no"`
	StudentName string            `json:"student_name"`
	SourceFile  string            `json:"source_file,omitempty"`
	DayColumns  map[string]string `json:"day_columns,omitempty"`
}

// SeatSlot is the atomic unit of assignment: one (room, bench, seat)
// triple. Unfilled slots keep the sentinel in every student field.
// Subjects holds the normalized, ", "-joined subject list for the selected
// day, or the sentinel when none apply.
type SeatSlot struct {
	RoomID      string       `json:"room"`
	BenchNo     int          `json:"bench"`
	Seat        SeatPosition `json:"seat"`
	ClassNo     string       `json:"class_no"`
	StudentName string       `json:"student_name"`
	Subjects    string       `json:"subjects"`
}

// Occupied reports whether a student is seated in the slot.
func (s SeatSlot) Occupied() bool {
	return s.ClassNo != Sentinel
}

// PivotRow is one row of the room-by-bench seating grid: class numbers per
// seat position.
type PivotRow struct {
	RoomID  string                  `json:"room"`
	BenchNo int                     `json:"bench"`
	Seats   map[SeatPosition]string `json:"seats"`
}
