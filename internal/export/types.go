// Package export renders seating charts into downloadable files: a printable
// PDF, a PNG image, or an XLSX workbook. Exports can optionally be published
// to an S3-compatible archive for link sharing.
package export

import (
	"errors"
	"time"

	"seatplan/api/internal/seating"
)

// Format represents the export output format
type Format string

const (
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ValidFormat reports whether f is a supported export format.
func ValidFormat(f Format) bool {
	return f == FormatPNG || f == FormatPDF || f == FormatXLSX
}

// Request contains parameters for an export operation
type Request struct {
	Chart  seating.State
	Format Format
	// Share uploads the file to the archive and returns a link instead of
	// relying on the direct download alone.
	Share bool
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
	// URL and ExpiresAt are set only when the export was shared.
	URL       string
	ExpiresAt time.Time
}

var (
	// ErrRendererMissing indicates the headless browser needed for PDF and
	// PNG rendering is not installed.
	ErrRendererMissing = errors.New("export renderer missing")
	// ErrPrintBlocked indicates the browser refused or failed the render.
	ErrPrintBlocked = errors.New("export print blocked")
	// ErrArchiveUnavailable indicates a share link was requested but no
	// archive is configured.
	ErrArchiveUnavailable = errors.New("export archive unavailable")
)
