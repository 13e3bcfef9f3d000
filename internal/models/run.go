package models

import "time"

// SeatingRun is the explicit result of one pipeline invocation: the seat
// grid plus every derived view, returned as a value instead of living in
// an implicit session cache. SeatedCount versus RosterCount surfaces the
// silent capacity overflow to callers.
type SeatingRun struct {
	ID             string       `json:"id"`
	Category       string       `json:"category,omitempty"`
	DayLabel       string       `json:"day_label,omitempty"`
	OrderedRoomIDs []string     `json:"ordered_room_ids"`
	Slots          []SeatSlot   `json:"slots"`
	Pivot          []PivotRow   `json:"pivot"`
	Demand         DemandResult `json:"demand"`
	SeatedCount    int          `json:"seated_count"`
	RosterCount    int          `json:"roster_count"`
	TotalCapacity  int          `json:"total_capacity"`
	Warnings       []string     `json:"warnings,omitempty"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// BundleJobStatus captures background bundle job lifecycle states.
type BundleJobStatus string

const (
	BundleJobQueued     BundleJobStatus = "QUEUED"
	BundleJobProcessing BundleJobStatus = "PROCESSING"
	BundleJobFinished   BundleJobStatus = "FINISHED"
	BundleJobFailed     BundleJobStatus = "FAILED"
)

// BundleJob tracks one asynchronous bundle assembly for a seating run.
// Files maps room IDs to stored bundle paths once the job finishes.
type BundleJob struct {
	ID             string             `json:"id"`
	RunID          string             `json:"run_id"`
	Status         BundleJobStatus    `json:"status"`
	Files          map[string]string  `json:"files,omitempty"`
	Summary        []RoomQPSummaryRow `json:"summary,omitempty"`
	MissingQPCodes []string           `json:"missing_qp_codes,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
	ErrorMessage   *string            `json:"error_message,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	FinishedAt     *time.Time         `json:"finished_at,omitempty"`
}
