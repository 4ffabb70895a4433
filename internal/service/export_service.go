package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/recruit-timeline-api/internal/dto"
	appErrors "github.com/noah-isme/recruit-timeline-api/pkg/errors"
	"github.com/noah-isme/recruit-timeline-api/pkg/export"
)

// Export formats accepted by ExportService.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type timelineSource interface {
	Timeline(ctx context.Context, companyName string) (*dto.TimelineResponse, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportResult is a rendered timeline file.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders company timelines as downloadable files.
type ExportService struct {
	timelines timelineSource
	renderers map[string]datasetRenderer
	now       func() time.Time
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(timelines timelineSource, logger *zap.Logger, pdfOpts ...export.PDFOption) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timelines: timelines,
		renderers: map[string]datasetRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(pdfOpts...),
		},
		now:    time.Now,
		logger: logger,
	}
}

// ExportTimeline renders the timeline of companyName in the requested format.
func (s *ExportService) ExportTimeline(ctx context.Context, companyName, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	timeline, err := s.timelines.Timeline(ctx, companyName)
	if err != nil {
		return nil, err
	}

	data := TimelineDataset(timeline)
	payload, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	result := &ExportResult{
		Filename:    s.buildFilename(timeline.Company, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}
	s.logger.Debug("timeline exported",
		zap.String("company", timeline.Company),
		zap.String("format", format),
		zap.Int("rows", len(data.Rows)),
		zap.Int("bytes", len(payload)),
	)
	return result, nil
}

// TimelineDataset flattens unit timelines into one row per step.
func TimelineDataset(timeline *dto.TimelineResponse) export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("%s recruitment timeline", timeline.Company),
		Headers: []string{"unit", "channel", "year", "step", "date", "day_diff"},
		Rows:    [][]string{},
	}
	for _, unit := range timeline.Units {
		for _, step := range unit.Steps {
			data.Rows = append(data.Rows, []string{
				unit.Category,
				string(unit.ChannelType),
				formatOptionalInt(unit.Year),
				step.StepName,
				deref(step.Date),
				formatOptionalInt(step.DayDiff),
			})
		}
	}
	return data
}

func (s *ExportService) buildFilename(company, ext string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("timeline_%s_%s.%s", sanitizeFilename(company), timestamp, ext)
}

const maxFilenameBytes = 100

func sanitizeFilename(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "\"", "", "..", ".")
	result := replacer.Replace(raw)
	for len(result) > maxFilenameBytes {
		_, size := utf8.DecodeLastRuneInString(result)
		result = result[:len(result)-size]
	}
	return result
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
