package exportsvc

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
)

const previewSheet = "Placement Preview"

var columnWidths = []float64{32, 16, 22, 22, 12}

// WriteXLSX writes the placement preview as a single-sheet Excel workbook.
func WriteXLSX(w io.Writer, rows []placement.PreviewRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", previewSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	header := make([]interface{}, len(placement.PreviewHeader))
	for i, h := range placement.PreviewHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(previewSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err = f.SetCellStyle(previewSheet, "A1", lastCol+"1", bold); err != nil {
		return errors.Wrap(err, "styling header")
	}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err = f.SetColWidth(previewSheet, col, col, width); err != nil {
			return errors.Wrap(err, "sizing columns")
		}
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		record := r.Record()
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err = f.SetSheetRow(previewSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	if _, err = f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}
