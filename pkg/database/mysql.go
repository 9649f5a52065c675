// Package database opens the MySQL and Redis connections.
package database

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

var DB *gorm.DB

// InitMySQL opens DB and configures its connection pool.
// With autoMigrate the documents and chunks tables are created or updated.
func InitMySQL(dsn string, autoMigrate bool) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if autoMigrate {
		if err := DB.AutoMigrate(&model.Document{}, &model.Chunk{}); err != nil {
			log.Fatal("failed to migrate schema", err)
		}
	}

	log.Info("MySQL database connected successfully")
}
