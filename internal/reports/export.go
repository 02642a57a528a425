// Package reports renders service reports and fleet exports for download.
package reports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"printfleet-system/internal/database/models"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// BuildServiceReportPDF renders a stored service report snapshot.
func BuildServiceReportPDF(snapshot *models.ServiceReportSnapshot) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Service Report "+snapshot.ReportNumber, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Service Report")
	pdf.Ln(10)

	record := snapshot.Record
	printer := snapshot.Printer

	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 6, tr(value), "", "L", false)
	}

	line("Report number", snapshot.ReportNumber)
	line("Generated", snapshot.GeneratedAt.Format(time.RFC3339))
	line("Generated by", snapshot.GeneratedBy)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 7, "Printer")
	pdf.Ln(8)
	line("Printer", strings.TrimSpace(fmt.Sprintf("%s %s %s", printer.Make, printer.Series, printer.Model)))
	line("Serial number", deref(printer.SerialNumber))
	line("Status", string(printer.Status))
	line("Client", deref(printer.ClientName))
	line("Department", deref(printer.Department))
	line("Location", deref(printer.Location))
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 7, "Maintenance")
	pdf.Ln(8)
	line("Record", fmt.Sprintf("#%d (%s)", record.ID, record.Status))
	line("Issue", record.IssueDescription)
	line("Reported", fmt.Sprintf("%s by %s", formatTime(&record.ReportedAt), record.ReportedBy))
	line("Diagnosis", deref(record.Diagnosis))
	line("Diagnosed", fmt.Sprintf("%s by %s", formatTime(record.DiagnosedAt), deref(record.DiagnosedBy)))
	line("Technician", deref(record.Technician))
	line("Repaired", formatTime(record.RepairedAt))
	line("Repair notes", deref(record.RepairNotes))
	line("Next maintenance", formatTime(record.NextMaintenanceDate))
	line("Remarks", deref(record.Remarks))
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(140, 6, "Part", "1", 0, "L", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, part := range record.PartsUsed {
		pdf.CellFormat(140, 6, tr(part), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(140, 6, fmt.Sprintf("Repair cost: %s", record.RepairCost.StringFixed(2)), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var fleetHeader = []string{
	"ID", "Make", "Series", "Model", "Serial Number", "Status", "Ownership",
	"Client", "Department", "Location", "Assigned To", "For Rent", "Updated",
}

// BuildFleetXLSX writes one row per printer plus a status summary sheet. clientNames maps
// client ids to display names.
func BuildFleetXLSX(printers []models.Printer, clientNames map[int64]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	fleetSheet := "fleet"
	summarySheet := "summary"
	if err := f.SetSheetName("Sheet1", fleetSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	for i, title := range fleetHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(fleetSheet, cell, title)
	}

	counts := map[models.PrinterStatus]int{}
	for i, p := range printers {
		row := i + 2
		client := ""
		if p.ClientID != nil {
			client = clientNames[*p.ClientID]
		}
		values := []interface{}{
			p.ID, p.Make, p.Series, p.Model, deref(p.SerialNumber), string(p.Status), string(p.Ownership),
			client, deref(p.Department), deref(p.Location), deref(p.AssignedTo), p.IsForRent,
			p.UpdatedAt.Format("2006-01-02"),
		}
		if err := f.SetSheetRow(fleetSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
		counts[p.Status]++
	}

	_ = f.SetCellValue(summarySheet, "A1", "Status")
	_ = f.SetCellValue(summarySheet, "B1", "Printers")
	statuses := []models.PrinterStatus{
		models.PrinterAvailable, models.PrinterRented, models.PrinterDeployed, models.PrinterMaintenance,
		models.PrinterForRepair, models.PrinterUnknown, models.PrinterRetired,
	}
	for i, status := range statuses {
		row := i + 2
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(status))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), counts[status])
	}
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", len(statuses)+2), "total")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", len(statuses)+2), len(printers))

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
