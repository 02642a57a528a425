package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"printfleet-system/config"
	"printfleet-system/internal/database"
)

func openDatabase(cfg config.Config, logger *zap.Logger) (*gorm.DB, error) {
	return database.NewConnection(cfg.DB.BuildDSN(), database.PoolConfig{
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	}, cfg.Log.Level, logger)
}

func main() {
	if err := newRootCmd(openDatabase).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
