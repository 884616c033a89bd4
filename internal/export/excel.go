// Package export renders attendance history as an xlsx workbook.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"rollbook/internal/attendance"
)

const sheetName = "Attendance Report"

// RecordSource supplies the joined rows for the report.
type RecordSource interface {
	ListAllWithStudents(ctx context.Context) ([]attendance.RecordWithStudent, error)
}

// Writer streams the attendance report.
type Writer struct {
	source RecordSource
}

// NewWriter creates a report writer.
func NewWriter(source RecordSource) *Writer {
	return &Writer{source: source}
}

// WriteXLSX writes the full report to w: one header row, then one row per
// record with the student's name, roll number, date and status.
func (e *Writer) WriteXLSX(ctx context.Context, w io.Writer) error {
	records, err := e.source.ListAllWithStudents(ctx)
	if err != nil {
		return fmt.Errorf("load attendance for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	header := []interface{}{"Student Name", "Roll No", "Date", "Status"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	_ = f.SetColWidth(sheetName, "A", "A", 25)
	_ = f.SetColWidth(sheetName, "B", "D", 15)

	for i, rec := range records {
		row := []interface{}{rec.StudentName, rec.RollNo, rec.Day.Format("2006-01-02"), string(rec.Status)}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}
