package database

import (
	"fmt"
	"log"

	"proctorx_backend/internal/config"
	"proctorx_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
		cfg.Database.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// release 模式下默认跳过自动迁移，需要 -migrate 显式触发
	if cfg.Server.Mode == "release" && !cfg.ForceMigrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Test{},
		&model.Question{},
		&model.Submission{},
		&model.Answer{},
		&model.Violation{},
		&model.ActivityEvent{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}
