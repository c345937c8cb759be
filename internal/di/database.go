package di

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/domain/entity"
)

// DatabaseModule provides the state store database connection
var DatabaseModule = fx.Module("database",
	fx.Provide(provideDatabase),
	fx.Invoke(runMigrations),
)

func provideDatabase(lc fx.Lifecycle, cfg *config.StoreConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.StoreDriver(cfg.Driver) {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN())
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN())
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}

	logger.Info("Connecting to state store",
		zap.String("driver", cfg.Driver),
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to state store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing state store connection")
			return sqlDB.Close()
		},
	})

	return db, nil
}

func runMigrations(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running state store migrations")
	return db.AutoMigrate(
		&entity.PluginRecord{},
	)
}
