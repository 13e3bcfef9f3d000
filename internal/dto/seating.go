package dto

import (
	"time"

	"github.com/noah-isme/exam-hall-api/internal/models"
)

// GenerateSeatingRequest starts one seating pipeline run over the working
// dataset. Room IDs are taken in the given order; a room listed twice is
// filled twice.
type GenerateSeatingRequest struct {
	Category string   `json:"category"`
	DayLabel string   `json:"dayLabel"`
	RoomIDs  []string `json:"roomIds" validate:"required,min=1,dive,required"`
}

// SeatingRunSummary is the lightweight view of a run returned on creation.
type SeatingRunSummary struct {
	ID             string    `json:"id"`
	Category       string    `json:"category,omitempty"`
	DayLabel       string    `json:"dayLabel,omitempty"`
	OrderedRoomIDs []string  `json:"orderedRoomIds"`
	SeatedCount    int       `json:"seatedCount"`
	RosterCount    int       `json:"rosterCount"`
	TotalCapacity  int       `json:"totalCapacity"`
	Warnings       []string  `json:"warnings,omitempty"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// NewSeatingRunSummary projects a run into its summary.
func NewSeatingRunSummary(run *models.SeatingRun) SeatingRunSummary {
	return SeatingRunSummary{
		ID:             run.ID,
		Category:       run.Category,
		DayLabel:       run.DayLabel,
		OrderedRoomIDs: run.OrderedRoomIDs,
		SeatedCount:    run.SeatedCount,
		RosterCount:    run.RosterCount,
		TotalCapacity:  run.TotalCapacity,
		Warnings:       run.Warnings,
		GeneratedAt:    run.GeneratedAt,
	}
}

// RemarkSheetRequest fills the remark template for a finished run.
type RemarkSheetRequest struct {
	ExamTitle string `json:"examTitle"`
	ExamDate  string `json:"examDate" validate:"required"`
}
