package models

// QPMappingEntry joins a normalized subject name to its question paper
// code. Duplicate subject rows may exist in source data; lookups take the
// first match and surface the duplication as a warning.
type QPMappingEntry struct {
	QPCode  string `json:"qp_code"`
	Subject string `json:"subject_name"`
}

// RoomQPSummaryRow is one audit row of the bundle result: how many copies
// of a paper a room received and under which code.
type RoomQPSummaryRow struct {
	RoomID        string `json:"room"`
	Subject       string `json:"subject"`
	QPCode        string `json:"qp_code"`
	Students      int    `json:"students"`
	TotalStudents int    `json:"total_students"`
}

// BundleResult is the output of one QP bundle assembly: merged per-room
// PDFs (rooms with zero resolved pages are absent), the audit summary, the
// set-difference of required vs uploaded QP codes, and the accumulated
// warn-and-skip messages.
type BundleResult struct {
	RoomPDFs       map[string][]byte  `json:"-"`
	Summary        []RoomQPSummaryRow `json:"summary"`
	MissingQPCodes []string           `json:"missing_qp_codes"`
	Warnings       []string           `json:"warnings"`
}
