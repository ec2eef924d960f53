package models

import "time"

// ExportFormat enumerates supported export renderings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportRequest describes a list export.
type ExportRequest struct {
	Resource string
	Format   ExportFormat
	Search   string
	SortBy   string
}

// ExportResult captures a stored export and its signed download link.
type ExportResult struct {
	ID        string       `json:"id"`
	Resource  string       `json:"resource"`
	Format    ExportFormat `json:"format"`
	Rows      int          `json:"rows"`
	Token     string       `json:"token"`
	URL       string       `json:"url"`
	ExpiresAt time.Time    `json:"expires_at"`
}
