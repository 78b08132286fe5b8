package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenGorm connects to MySQL and verifies the connection with a ping.
func OpenGorm(dsn string, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := OpenGormWithDialector(mysql.Open(dsn))
	if err != nil {
		return nil, err
	}
	log.Info("mysql connected")
	return gdb, nil
}

// OpenGormWithDialector exists so tests can inject a mocked *sql.DB.
func OpenGormWithDialector(dial gorm.Dialector) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	gdb, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return gdb, nil
}
