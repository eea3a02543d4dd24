package export

import (
	"context"
	"fmt"
)

// Service renders seating charts in the requested formats
type Service struct {
	archive *Archive
}

// NewService creates a new export service. A nil archive disables share
// links; direct downloads keep working.
func NewService(archive *Archive) *Service {
	return &Service{archive: archive}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	title := chartTitle(req.Chart)

	var result *Result
	var err error
	switch req.Format {
	case FormatPDF, FormatPNG:
		var html string
		html, err = RenderChartHTML(buildTemplateData(req.Chart))
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		if req.Format == FormatPDF {
			result, err = renderPDF(ctx, html, title)
		} else {
			result, err = renderPNG(ctx, html, title)
		}
	case FormatXLSX:
		result, err = buildXLSX(req.Chart, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
	if err != nil {
		return nil, err
	}

	if req.Share {
		if s.archive == nil {
			return nil, ErrArchiveUnavailable
		}
		url, expiresAt, err := s.archive.Upload(ctx, result.Filename, result.MimeType, result.Data)
		if err != nil {
			return nil, fmt.Errorf("archive upload: %w", err)
		}
		result.URL = url
		result.ExpiresAt = expiresAt
	}

	return result, nil
}
