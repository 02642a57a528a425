package database

import (
	"strings"

	"gorm.io/gorm"

	"printfleet-system/internal/database/models"
)

// ResolveDepartmentID returns the id of the client's department whose name matches, or nil
// when there is no client, no name, or no such department.
func ResolveDepartmentID(tx *gorm.DB, clientID *int64, name *string) (*int64, error) {
	if clientID == nil || name == nil || strings.TrimSpace(*name) == "" {
		return nil, nil
	}

	var departments []models.Department
	if err := tx.Where("client_id = ? AND name = ?", *clientID, strings.TrimSpace(*name)).
		Order("id ASC").Limit(1).Find(&departments).Error; err != nil {
		return nil, err
	}
	if len(departments) == 0 {
		return nil, nil
	}
	return &departments[0].ID, nil
}
