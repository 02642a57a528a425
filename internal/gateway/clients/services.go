package clients

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"printfleet-system/internal/logging"
	catalog "printfleet-system/internal/services/catalog/handler"
	client "printfleet-system/internal/services/client/handler"
	maintenance "printfleet-system/internal/services/maintenance/handler"
	printer "printfleet-system/internal/services/printer/handler"
	rental "printfleet-system/internal/services/rental/handler"
	toner "printfleet-system/internal/services/toner/handler"
	transfer "printfleet-system/internal/services/transfer/handler"
	user "printfleet-system/internal/services/user/handler"
	wiki "printfleet-system/internal/services/wiki/handler"
	sysutils "printfleet-system/internal/utils"
)

// Services holds every in-process service the gateway routes to, plus the stores they share.
type Services struct {
	Catalog     *catalog.CatalogHandler
	Printers    *printer.PrinterHandler
	Clients     *client.ClientHandler
	Transfers   *transfer.TransferHandler
	Maintenance *maintenance.MaintenanceHandler
	Toners      *toner.TonerHandler
	Rentals     *rental.RentalHandler
	Wiki        *wiki.WikiHandler
	Users       *user.UserHandler
	Tokens      *sysutils.TokenIssuer

	db    *gorm.DB
	redis *redis.Client
	log   *zap.Logger
}

// NewServices wires the services. redisClient may be nil, in which case caching and events
// are disabled.
func NewServices(db *gorm.DB, redisClient *redis.Client, tokens *sysutils.TokenIssuer, logger *zap.Logger) *Services {
	logger = logging.OrNop(logger)

	s := &Services{
		Catalog:     catalog.NewCatalogHandler(db, redisClient, logger),
		Printers:    printer.NewPrinterHandler(db, redisClient, logger),
		Clients:     client.NewClientHandler(db, redisClient, logger),
		Transfers:   transfer.NewTransferHandler(db, redisClient, logger),
		Maintenance: maintenance.NewMaintenanceHandler(db, redisClient, logger),
		Toners:      toner.NewTonerHandler(db, redisClient, logger),
		Rentals:     rental.NewRentalHandler(db, redisClient, logger),
		Wiki:        wiki.NewWikiHandler(db, redisClient, logger),
		Users:       user.NewUserHandler(db, redisClient, tokens, logger),
		Tokens:      tokens,
		db:          db,
		redis:       redisClient,
		log:         logger,
	}

	logger.Info("Services initialized", zap.Bool("redis", redisClient != nil))
	return s
}

func (s *Services) IsDatabaseHealthy(ctx context.Context) bool {
	if s.db == nil {
		return false
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx) == nil
}

func (s *Services) IsRedisHealthy(ctx context.Context) bool {
	if s.redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.redis.Ping(ctx).Err() == nil
}

func (s *Services) RedisEnabled() bool {
	return s.redis != nil
}

func (s *Services) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn("Closing redis", zap.Error(err))
		}
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				s.log.Warn("Closing database", zap.Error(err))
			}
		}
	}
}
