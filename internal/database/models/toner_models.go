package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Toner struct {
	ID                 int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Brand              string      `gorm:"size:100;not null;index" json:"brand"`
	Model              string      `gorm:"size:100;not null" json:"model"`
	Color              TonerColor  `gorm:"size:20;not null" json:"color"`
	OEMCode            *string     `gorm:"column:oem_code;size:100;index" json:"oem_code,omitempty"`
	PageYield          int32       `json:"page_yield"`
	Aliases            StringArray `gorm:"type:text" json:"aliases"`
	Compatibility      StringArray `gorm:"type:text" json:"compatibility"`
	IsBaseModel        bool        `json:"is_base_model"`
	BaseModelReference *int64      `gorm:"index" json:"base_model_reference,omitempty"`
	VariantName        *string     `gorm:"size:100" json:"variant_name,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// TonerCompatibility is the explicit toner to printer model link.
type TonerCompatibility struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TonerID        int64     `gorm:"uniqueIndex:idx_toner_model;not null" json:"toner_id"`
	PrinterModelID int64     `gorm:"uniqueIndex:idx_toner_model;index;not null" json:"printer_model_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// CommercialTonerProduct is the purchasable storefront SKU.
type CommercialTonerProduct struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU           string          `gorm:"column:sku;size:64;uniqueIndex;not null" json:"sku"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	TonerID       *int64          `gorm:"index" json:"toner_id,omitempty"`
	Manufacturer  string          `gorm:"size:100" json:"manufacturer"`
	Compatibility StringArray     `gorm:"type:text" json:"compatibility"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	StockLevel    int32           `gorm:"not null" json:"stock_level"`
	Categories    StringArray     `gorm:"type:text" json:"categories"`
	Description   *string         `gorm:"type:text" json:"description,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Toner *Toner `gorm:"foreignKey:TonerID" json:"toner,omitempty"`
}

func (CommercialTonerProduct) TableName() string { return "product_toners" }

func (t Toner) CompatibleModels() []string { return t.Compatibility }
func (t Toner) Maker() string              { return t.Brand }

func (p CommercialTonerProduct) CompatibleModels() []string { return p.Compatibility }
func (p CommercialTonerProduct) Maker() string              { return p.Manufacturer }
