// Package export renders an agency's submissions as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/civic-triage/internal/domain"
)

// SheetName is the worksheet holding submissions.
const SheetName = "Submissions"

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04:05"

// Headers are the column titles, in order.
var Headers = []string{
	"Ticket ID", "Status", "Category", "Subject", "Description",
	"Citizen Contact", "Language", "Admin Response", "Created At", "Updated At",
}

var columnWidths = map[string]float64{
	"A": 20, "B": 14, "C": 22, "D": 30, "E": 60,
	"F": 22, "G": 12, "H": 50, "I": 20, "J": 20,
}

// Filename names the export for an agency at t.
func Filename(agencyID int64, t time.Time) string {
	return fmt.Sprintf("submissions-agency-%d-%s.xlsx", agencyID, t.Format("20060102"))
}

// WriteSubmissions writes subs to w. Times are rendered in loc; nil means UTC.
func WriteSubmissions(w io.Writer, subs []domain.SubmissionDetail, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeHeader(f); err != nil {
		return err
	}

	for i, s := range subs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(SheetName, cell, ptr(row(s, loc))); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(Headers), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("set width %s: %w", col, err)
		}
	}
	return nil
}

func row(s domain.SubmissionDetail, loc *time.Location) []any {
	category := ""
	if s.Category != nil {
		category = s.Category.Name
	}
	return []any{
		s.TicketID,
		string(s.Status),
		category,
		deref(s.Subject),
		s.Description,
		s.CitizenContact,
		s.LanguagePreference,
		deref(s.AdminResponse),
		s.CreatedAt.In(loc).Format(timeLayout),
		s.UpdatedAt.In(loc).Format(timeLayout),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr[T any](v T) *T { return &v }
