package models

import "time"

type WikiArticle struct {
	ID             int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title          string      `gorm:"size:255;not null" json:"title"`
	Slug           string      `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Content        string      `gorm:"type:text" json:"content"`
	Category       string      `gorm:"size:100;index" json:"category"`
	Tags           StringArray `gorm:"type:text" json:"tags"`
	PrinterModelID *int64      `gorm:"index" json:"printer_model_id,omitempty"`
	Published      bool        `json:"published"`
	Author         string      `gorm:"size:100" json:"author"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
