package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"github.com/soaringjerry/gradtrack/internal/models"
)

// Export formats.
const (
	FormatZip  = "zip"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	users     UserStore
	surveys   SurveyStore
	responses ResponseStore
	stats     *StatsService
	// archive is false when no archiver is available; Bundle then returns one file
	// per table.
	archive bool
}

func NewExportService(users UserStore, surveys SurveyStore, responses ResponseStore, stats *StatsService) *ExportService {
	return &ExportService{users: users, surveys: surveys, responses: responses, stats: stats, archive: true}
}

// WithoutArchive disables zip and xlsx bundling.
func (s *ExportService) WithoutArchive() *ExportService {
	cp := *s
	cp.archive = false
	return &cp
}

// Tables snapshots every collection in export order.
func (s *ExportService) Tables(ctx context.Context) ([]Table, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	surveys, err := s.surveys.List(ctx)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.List(ctx)
	if err != nil {
		return nil, err
	}
	var st *models.Stats
	if s.stats != nil {
		if st, err = s.stats.Live(ctx); err != nil {
			return nil, err
		}
	}
	if st == nil {
		st = &models.Stats{}
	}
	return []Table{
		SummaryTable(*st),
		UsersTable(users),
		SurveysTable(surveys),
		ResponsesTable(responses, surveys),
	}, nil
}

// Table exports a single named collection as CSV.
func (s *ExportService) Table(ctx context.Context, sess *models.Session, name string) (*ExportResult, error) {
	if err := requireCoordinator(sess); err != nil {
		return nil, err
	}
	tables, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if t.Name != name {
			continue
		}
		if name == "responses" && len(t.Rows) == 0 {
			return nil, NewKeyedError(ErrorNotFound, "export.empty")
		}
		return csvResult(t), nil
	}
	return nil, NewFieldError("table", "export.format")
}

// Bundle exports every table as reports.zip or reports.xlsx. Without an archiver, or
// when building the archive fails, it falls back to separate CSV files.
func (s *ExportService) Bundle(ctx context.Context, sess *models.Session, format string) ([]ExportResult, error) {
	if err := requireCoordinator(sess); err != nil {
		return nil, err
	}
	tables, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatZip
	}
	switch format {
	case FormatZip, FormatXLSX, FormatCSV:
	default:
		return nil, NewFieldError("format", "export.format")
	}
	if s.archive {
		var res *ExportResult
		switch format {
		case FormatZip:
			res, err = zipTables(tables)
		case FormatXLSX:
			res, err = xlsxTables(tables)
		}
		if err != nil {
			log.Printf("export: %s bundle failed, sending separate files: %v", format, err)
		} else if res != nil {
			return []ExportResult{*res}, nil
		}
	}
	out := make([]ExportResult, 0, len(tables))
	for _, t := range tables {
		out = append(out, *csvResult(t))
	}
	return out, nil
}

func csvResult(t Table) *ExportResult {
	return &ExportResult{Filename: t.Name + ".csv", ContentType: "text/csv; charset=utf-8", Data: t.CSV()}
}

func zipTables(tables []Table) (*ExportResult, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, t := range tables {
		w, err := zw.Create(t.Name + ".csv")
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(t.CSV()); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return &ExportResult{Filename: "reports.zip", ContentType: "application/zip", Data: buf.Bytes()}, nil
}

func xlsxTables(tables []Table) (*ExportResult, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("export: close workbook: %v", err)
		}
	}()
	first := f.GetSheetName(f.GetActiveSheetIndex())
	for i, t := range tables {
		sheet := t.Name
		if i == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		rows := append([][]string{t.Header}, t.Rows...)
		for r, row := range rows {
			for c, val := range row {
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(sheet, cell, val); err != nil {
					return nil, fmt.Errorf("set %s!%s: %w", sheet, cell, err)
				}
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "reports.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}
