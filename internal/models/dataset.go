package models

import "time"

// Dataset is the working set of static inputs for one exam category: the
// room capacity table, the student roster, the QP code mapping, the remark
// sheet template, and the uploaded question paper PDFs keyed by QP code.
// Missing pieces load as warnings, not failures, so a partial data
// directory still supports the operations it can.
type Dataset struct {
	Category string            `json:"category"`
	Rooms    []RoomCapacity    `json:"rooms"`
	Roster   []StudentRecord   `json:"roster"`
	Mapping  []QPMappingEntry  `json:"mapping"`
	Template []byte            `json:"-"`
	QPFiles  map[string][]byte `json:"-"`
	Warnings []string          `json:"warnings,omitempty"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// DatasetSummary is the wire-friendly shape of a dataset: counts instead
// of payloads.
type DatasetSummary struct {
	Category    string    `json:"category"`
	Rooms       int       `json:"rooms"`
	Students    int       `json:"students"`
	MappingRows int       `json:"mapping_rows"`
	QPFiles     int       `json:"qp_files"`
	HasTemplate bool      `json:"has_template"`
	Warnings    []string  `json:"warnings,omitempty"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Summarize reduces the dataset to its summary.
func (d *Dataset) Summarize() DatasetSummary {
	return DatasetSummary{
		Category:    d.Category,
		Rooms:       len(d.Rooms),
		Students:    len(d.Roster),
		MappingRows: len(d.Mapping),
		QPFiles:     len(d.QPFiles),
		HasTemplate: len(d.Template) > 0,
		Warnings:    d.Warnings,
		LoadedAt:    d.LoadedAt,
	}
}
