package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/arka-edu/school-suite-api/internal/models"
	"github.com/arka-edu/school-suite-api/internal/schedule"
	"github.com/arka-edu/school-suite-api/pkg/export"
	appErrors "github.com/arka-edu/school-suite-api/pkg/errors"
)

type exportTimetableReader interface {
	Get(ctx context.Context, id string) (*models.Timetable, error)
}

// ExportFile is a rendered export ready to be streamed to the client.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders timetables into downloadable formats.
type ExportService struct {
	timetables exportTimetableReader
	logger     *zap.Logger
	enabled    bool
}

// NewExportService constructs an ExportService.
func NewExportService(timetables exportTimetableReader, logger *zap.Logger, enabled bool) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{timetables: timetables, logger: logger, enabled: enabled}
}

// Timetable renders the full week of one timetable as csv or pdf.
func (s *ExportService) Timetable(ctx context.Context, timetableID, format string) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export is disabled")
	}
	tt, err := s.timetables.Get(ctx, timetableID)
	if err != nil {
		return nil, err
	}

	table := buildTimetableTable(tt)
	base := fmt.Sprintf("timetable-%s-%s", strings.ToLower(tt.Section), tt.AcademicYear)

	switch strings.ToLower(format) {
	case "csv":
		content, err := export.CSV(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Content: content, ContentType: "text/csv", Filename: base + ".csv"}, nil
	case "pdf":
		content, err := export.PDF(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Content: content, ContentType: "application/pdf", Filename: base + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func buildTimetableTable(tt *models.Timetable) export.Table {
	periods := make([]models.Period, len(tt.Periods))
	copy(periods, tt.Periods)

	dayRank := make(map[string]int, len(tt.TimeGrid.WorkingDays))
	for i, day := range tt.TimeGrid.WorkingDays {
		dayRank[strings.ToUpper(day)] = i
	}
	sort.SliceStable(periods, func(i, j int) bool {
		di, dj := dayRank[periods[i].Day], dayRank[periods[j].Day]
		if di != dj {
			return di < dj
		}
		a, errA := schedule.ParseClock(periods[i].StartTime)
		b, errB := schedule.ParseClock(periods[j].StartTime)
		if errA != nil || errB != nil {
			return periods[i].StartTime < periods[j].StartTime
		}
		return a < b
	})

	rows := make([][]string, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, []string{
			p.Day,
			fmt.Sprintf("%d", p.PeriodNumber),
			p.StartTime,
			p.EndTime,
			string(p.PeriodType),
			p.SubjectID,
			p.TeacherID,
			p.Room,
		})
	}
	return export.Table{
		Title:   fmt.Sprintf("Timetable %s / %s", tt.Section, tt.AcademicYear),
		Headers: []string{"Day", "#", "Start", "End", "Type", "Subject", "Teacher", "Room"},
		Rows:    rows,
	}
}
