package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"printfleet-system/internal/database/models"
)

type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
}

// GormLogLevel maps a zap level name onto gorm's log levels. SQL statements are only traced
// at debug.
func GormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.Info
	case "error", "dpanic", "panic", "fatal":
		return logger.Error
	default:
		return logger.Warn
	}
}

// NewGormLogger routes gorm output through the zap logger.
func NewGormLogger(log *zap.Logger, level string) logger.Interface {
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  GormLogLevel(level),
		IgnoreRecordNotFoundError: true,
	})
}

func NewConnection(dsn string, pool PoolConfig, logLevel string, log *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(log, logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = 20
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = 5
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	log.Info("Database connected",
		zap.Int("max_open_conns", pool.MaxOpenConns),
		zap.Int("max_idle_conns", pool.MaxIdleConns))

	return db, nil
}

// Migrate creates or updates every table the services use.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.PrinterMake{},
		&models.PrinterSeries{},
		&models.PrinterModel{},
		&models.Toner{},
		&models.TonerCompatibility{},
		&models.CommercialTonerProduct{},
		&models.Client{},
		&models.Department{},
		&models.Printer{},
		&models.PrinterClientAssignment{},
		&models.TransferLog{},
		&models.MaintenanceRecord{},
		&models.MaintenanceReport{},
		&models.RentalOption{},
		&models.Rental{},
		&models.WikiArticle{},
	)
}

// Page mirrors the page_size/page_token query pair of the HTTP API.
type Page struct {
	Size  int    `json:"page_size"`
	Token string `json:"page_token"`
}

type PageResult struct {
	NextPageToken string `json:"next_page_token"`
	TotalCount    int64  `json:"total_count"`
}

// Paginate counts the query, then loads one page of it into dest.
func Paginate(query *gorm.DB, page Page, dest interface{}) (PageResult, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return PageResult{}, err
	}

	pageSize := page.Size
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}

	pageNumber := 1
	if page.Token != "" {
		if n, err := strconv.Atoi(page.Token); err == nil && n > 0 {
			pageNumber = n
		}
	}

	offset := (pageNumber - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(dest).Error; err != nil {
		return PageResult{}, err
	}

	result := PageResult{TotalCount: total}
	if int64(pageNumber*pageSize) < total {
		result.NextPageToken = strconv.Itoa(pageNumber + 1)
	}
	return result, nil
}
