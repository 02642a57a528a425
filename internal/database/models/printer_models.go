package models

import "time"

type Printer struct {
	ID           int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Make         string        `gorm:"size:100;not null" json:"make"`
	Series       string        `gorm:"size:100" json:"series"`
	Model        string        `gorm:"size:100;not null" json:"model"`
	ModelID      *int64        `gorm:"index" json:"model_id,omitempty"`
	SerialNumber *string       `gorm:"size:100;index" json:"serial_number,omitempty"`
	Status       PrinterStatus `gorm:"size:20;not null;index" json:"status"`
	Ownership    Ownership     `gorm:"size:20;not null" json:"ownership"`
	ClientID     *int64        `gorm:"index" json:"client_id,omitempty"`
	AssignedTo   *string       `gorm:"size:100" json:"assigned_to,omitempty"`
	DepartmentID *int64        `gorm:"index" json:"department_id,omitempty"`
	Department   *string       `gorm:"size:100" json:"department,omitempty"`
	Location     *string       `gorm:"size:255" json:"location,omitempty"`
	Notes        *string       `gorm:"type:text" json:"notes,omitempty"`
	IsForRent    bool          `json:"is_for_rent"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	Toners []Toner `gorm:"many2many:printer_toners;" json:"toners,omitempty"`
}

type PrinterClientAssignment struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PrinterID  int64     `gorm:"index;not null" json:"printer_id"`
	ClientID   int64     `gorm:"index;not null" json:"client_id"`
	AssignedBy *string   `gorm:"size:100" json:"assigned_by,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}
