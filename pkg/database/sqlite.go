package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a file-backed SQLite database. It is used for local runs
// (DB_DRIVER=sqlite) and as the test database, since it enforces the same
// unique indexes and transactions as Postgres. Transactions take the write
// lock up front so concurrent writers queue on the busy timeout.
func NewSQLiteDB(path, environment string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", path)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(environment))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)

	return db, nil
}
