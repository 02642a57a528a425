package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"printfleet-system/internal/apperr"
	"printfleet-system/internal/database/models"
)

func (s *ClientHandler) ListDepartments(ctx context.Context, clientID int64) ([]models.Department, error) {
	departments := []models.Department{}
	if err := s.db.WithContext(ctx).Where("client_id = ?", clientID).Order("name ASC").Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

func (s *ClientHandler) CreateDepartment(ctx context.Context, clientID int64, name string) (*models.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", clientID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check client: %w", err)
	}
	if count == 0 {
		return nil, apperr.NotFound("client", clientID)
	}

	department := models.Department{ClientID: clientID, Name: name}
	if err := s.db.WithContext(ctx).Create(&department).Error; err != nil {
		return nil, fmt.Errorf("create department: %w", err)
	}
	return &department, nil
}

func (s *ClientHandler) getDepartment(ctx context.Context, id int64) (*models.Department, error) {
	var department models.Department
	if err := s.db.WithContext(ctx).First(&department, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("department", id)
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &department, nil
}

// RenameDepartment also rewrites the department text on every printer of the same client
// that references it, by id or by the old name.
func (s *ClientHandler) RenameDepartment(ctx context.Context, id int64, name string) (*models.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}

	department, err := s.getDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := department.Name

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(department).Update("name", name).Error; err != nil {
			return err
		}
		return tx.Model(&models.Printer{}).
			Where("client_id = ? AND (department_id = ? OR department = ?)", department.ClientID, id, oldName).
			Updates(map[string]interface{}{"department": name, "department_id": id}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("rename department: %w", err)
	}

	department.Name = name
	return department, nil
}

func (s *ClientHandler) DeleteDepartment(ctx context.Context, id int64) error {
	department, err := s.getDepartment(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Printer{}).
			Where("client_id = ? AND (department_id = ? OR department = ?)", department.ClientID, id, department.Name).
			Updates(map[string]interface{}{"department": nil, "department_id": nil}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Department{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}
