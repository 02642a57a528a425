package models

import "time"

type PrinterMake struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null;index" json:"name"`
	CreatedAt time.Time `json:"created_at"`

	Series []PrinterSeries `gorm:"foreignKey:MakeID" json:"series,omitempty"`
}

type PrinterSeries struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	MakeID    int64     `gorm:"index;not null" json:"make_id"`
	CreatedAt time.Time `json:"created_at"`

	Make   *PrinterMake   `gorm:"foreignKey:MakeID" json:"make,omitempty"`
	Models []PrinterModel `gorm:"foreignKey:SeriesID" json:"models,omitempty"`
}

func (PrinterSeries) TableName() string { return "printer_series" }

// PrinterModel doubles as the wiki entry describing the model in the abstract.
type PrinterModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	SeriesID      int64     `gorm:"index;not null" json:"series_id"`
	Description   *string   `gorm:"type:text" json:"description,omitempty"`
	IsColor       bool      `json:"is_color"`
	PrintSpeedPPM int32     `json:"print_speed_ppm,omitempty"`
	MonthlyDuty   int32     `json:"monthly_duty,omitempty"`
	ImageURL      *string   `gorm:"size:255" json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Series *PrinterSeries `gorm:"foreignKey:SeriesID" json:"series,omitempty"`
}
