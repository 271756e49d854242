package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	"github.com/noah-isme/gym-scheduling-api/pkg/export"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

type sessionLister interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders session timetables as CSV or PDF.
type ExportService struct {
	sessions sessionLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(sessions sessionLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{sessions: sessions, csv: csv, pdf: pdf, logger: logger}
}

// ExportResult carries rendered bytes plus HTTP metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Export renders the sessions matching the filter into the requested format.
func (s *ExportService) Export(ctx context.Context, filter models.SessionFilter, format ExportFormat) (*ExportResult, error) {
	sessions, _, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions for export")
	}

	dataset := sessionDataset(sessions)
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case ExportCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: fmt.Sprintf("sessions-%s.csv", stamp)}, nil
	case ExportPDF:
		content, err := s.pdf.Render(dataset, "Class sessions")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: fmt.Sprintf("sessions-%s.pdf", stamp)}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func sessionDataset(sessions []models.ClassSession) export.Dataset {
	headers := []string{"Session", "Schedule", "Start", "End", "Capacity", "Status"}
	rows := make([]map[string]string, 0, len(sessions))
	for _, session := range sessions {
		rows = append(rows, map[string]string{
			"Session":  session.ID,
			"Schedule": session.ScheduleID,
			"Start":    session.StartAt.Format(time.RFC3339),
			"End":      session.EndAt.Format(time.RFC3339),
			"Capacity": fmt.Sprintf("%d", session.Capacity),
			"Status":   string(session.Status),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
