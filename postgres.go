package main

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"postfeed/domain"
)

// models lists every table, in the order they can be created in.
var models = []interface{}{
	&domain.User{},
	&domain.Profile{},
	&domain.OAuth{},
	&domain.Post{},
	&domain.Hashtag{},
	&domain.Like{},
	&domain.Bookmark{},
	&domain.Comment{},
}

// OpenDB opens a new database connection. Queries are logged in development
// and silent in production.
func OpenDB(connectionInfo string, isProd bool) (*gorm.DB, error) {
	if connectionInfo == "" {
		return nil, fmt.Errorf("connectionInfo required")
	}
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if !isProd {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(postgres.Open(connectionInfo), cfg)
	if err != nil {
		return nil, fmt.Errorf("err opening gorm postgres connection: %w", err)
	}
	return db, nil
}

// AutoMigrate runs database migrations for all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models...)
}

// DestructiveReset drops all tables and rebuilds them.
func DestructiveReset(db *gorm.DB) error {
	tables := append([]interface{}{"post_hashtags"}, models...)
	if err := db.Migrator().DropTable(tables...); err != nil {
		return err
	}
	return AutoMigrate(db)
}

// CloseDB closes the database connection.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
