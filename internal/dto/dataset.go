package dto

// LoadDatasetRequest loads the on-disk data directory for a category.
type LoadDatasetRequest struct {
	Category string `json:"category" validate:"required"`
}

// UploadResponse reports the outcome of one dataset upload.
type UploadResponse struct {
	Filename string   `json:"filename"`
	QPCode   string   `json:"qpCode,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
