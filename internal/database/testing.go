package database

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// OpenTest opens a fresh in-memory SQLite database with the full schema
// applied. Production runs on Postgres; the models stay portable so tests can
// use this. Each call gets its own named memory database, shared-cache so the
// pool's connections all see the same data.
func OpenTest() (*gorm.DB, error) {
	name := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_busy_timeout=5000", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// A single connection keeps the memory database alive for the test.
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
