package models

import "time"

type Client struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Company   *string   `gorm:"size:255" json:"company,omitempty"`
	Email     *string   `gorm:"size:255" json:"email,omitempty"`
	Phone     *string   `gorm:"size:50" json:"phone,omitempty"`
	Address   *string   `gorm:"type:text" json:"address,omitempty"`
	Notes     *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Printers    []Printer    `gorm:"foreignKey:ClientID" json:"printers"`
	Departments []Department `gorm:"foreignKey:ClientID" json:"departments,omitempty"`
}

type Department struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID  int64     `gorm:"index;not null" json:"client_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
