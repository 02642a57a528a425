package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransferLog rows are insert-only.
type TransferLog struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PrinterID      int64     `gorm:"index;not null" json:"printer_id"`
	FromClientID   *int64    `json:"from_client_id,omitempty"`
	FromDepartment *string   `gorm:"size:100" json:"from_department,omitempty"`
	FromUser       *string   `gorm:"size:100" json:"from_user,omitempty"`
	ToClientID     *int64    `json:"to_client_id,omitempty"`
	ToDepartment   *string   `gorm:"size:100" json:"to_department,omitempty"`
	ToUser         *string   `gorm:"size:100" json:"to_user,omitempty"`
	Notes          *string   `gorm:"type:text" json:"notes,omitempty"`
	TransferredBy  string    `gorm:"size:100;not null" json:"transferred_by"`
	Date           time.Time `gorm:"index;not null" json:"date"`
	CreatedAt      time.Time `json:"created_at"`
}

type MaintenanceRecord struct {
	ID                  int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	PrinterID           int64             `gorm:"index;not null" json:"printer_id"`
	IssueDescription    string            `gorm:"type:text;not null" json:"issue_description"`
	ReportedBy          string            `gorm:"size:100;not null" json:"reported_by"`
	ReportedAt          time.Time         `gorm:"not null" json:"reported_at"`
	Status              MaintenanceStatus `gorm:"size:20;not null;index" json:"status"`
	Diagnosis           *string           `gorm:"type:text" json:"diagnosis,omitempty"`
	DiagnosedBy         *string           `gorm:"size:100" json:"diagnosed_by,omitempty"`
	DiagnosedAt         *time.Time        `json:"diagnosed_at,omitempty"`
	Technician          *string           `gorm:"size:100" json:"technician,omitempty"`
	PartsUsed           StringArray       `gorm:"type:text" json:"parts_used"`
	RepairCost          decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"repair_cost"`
	RepairNotes         *string           `gorm:"type:text" json:"repair_notes,omitempty"`
	RepairedAt          *time.Time        `json:"repaired_at,omitempty"`
	NextMaintenanceDate *time.Time        `gorm:"index" json:"next_maintenance_date,omitempty"`
	Remarks             *string           `gorm:"type:text" json:"remarks,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// MaintenanceReport holds at most one snapshot per record; regeneration overwrites it.
type MaintenanceReport struct {
	ID                  int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	MaintenanceRecordID int64          `gorm:"uniqueIndex;not null" json:"maintenance_record_id"`
	ReportNumber        string         `gorm:"size:64;not null" json:"report_number"`
	Snapshot            datatypes.JSON `json:"snapshot"`
	GeneratedBy         string         `gorm:"size:100" json:"generated_by"`
	GeneratedAt         time.Time      `json:"generated_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// ServiceReportSnapshot is the JSON document stored in MaintenanceReport.Snapshot.
type ServiceReportSnapshot struct {
	ReportNumber string               `json:"report_number"`
	GeneratedBy  string               `json:"generated_by"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Record       MaintenanceRecord    `json:"record"`
	Printer      ServiceReportPrinter `json:"printer"`
}

// ServiceReportPrinter is the printer as it stood when the report was generated.
type ServiceReportPrinter struct {
	ID           int64         `json:"id"`
	Make         string        `json:"make"`
	Series       string        `json:"series"`
	Model        string        `json:"model"`
	SerialNumber *string       `json:"serial_number,omitempty"`
	Status       PrinterStatus `json:"status"`
	ClientID     *int64        `json:"client_id,omitempty"`
	ClientName   *string       `json:"client_name,omitempty"`
	Department   *string       `json:"department,omitempty"`
	Location     *string       `json:"location,omitempty"`
}
