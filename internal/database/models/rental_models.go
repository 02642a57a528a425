package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Rental struct {
	ID             int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	PrinterID      int64        `gorm:"index;not null" json:"printer_id"`
	ClientID       int64        `gorm:"index;not null" json:"client_id"`
	RentalOptionID *int64       `json:"rental_option_id,omitempty"`
	StartDate      time.Time    `gorm:"not null" json:"start_date"`
	EndDate        time.Time    `gorm:"not null" json:"end_date"`
	Status         RentalStatus `gorm:"size:20;not null;index" json:"status"`
	AgreementURL   *string      `gorm:"size:512" json:"agreement_url,omitempty"`
	SignatureURL   *string      `gorm:"size:512" json:"signature_url,omitempty"`
	Notes          *string      `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`

	Printer      *Printer      `gorm:"foreignKey:PrinterID" json:"printer,omitempty"`
	Client       *Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	RentalOption *RentalOption `gorm:"foreignKey:RentalOptionID" json:"rental_option,omitempty"`
}

type RentalOption struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	MonthlyRate decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"monthly_rate"`
	MinMonths   int32           `json:"min_months"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
