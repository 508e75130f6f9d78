package repository

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todocat/internal/model"
)

// DefaultDSN is used when no database location is configured.
const DefaultDSN = "todocat.db"

type dbOptions struct {
	logOutput io.Writer
	logLevel  logger.LogLevel
}

// DBOption tunes NewDB.
type DBOption func(*dbOptions)

// WithLogOutput sends gorm's log lines to w instead of stdout.
func WithLogOutput(w io.Writer) DBOption {
	return func(o *dbOptions) { o.logOutput = w }
}

// WithLogLevel changes gorm's log level, Warn by default.
func WithLogLevel(level logger.LogLevel) DBOption {
	return func(o *dbOptions) { o.logLevel = level }
}

// NewDB opens a SQLite database and migrates every table the app uses.
func NewDB(dsn string, opts ...DBOption) (*gorm.DB, error) {
	o := dbOptions{logOutput: os.Stdout, logLevel: logger.Warn}
	for _, opt := range opts {
		opt(&o)
	}
	if dsn == "" {
		dsn = DefaultDSN
	}

	if path, onDisk := sqliteFile(dsn); onDisk {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir %q: %w", dir, err)
			}
		}
		// Several CLI invocations may share one file.
		if !strings.Contains(dsn, "_busy_timeout") {
			dsn = withParam(dsn, "_busy_timeout=5000")
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(log.New(o.logOutput, "", log.LstdFlags), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  o.logLevel,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Category{}, &model.Task{}, &model.KVEntry{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return db, nil
}

// sqliteFile returns the file behind dsn, or false for in-memory databases.
func sqliteFile(dsn string) (string, bool) {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return "", false
	}
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	return path, path != ""
}

func withParam(dsn, param string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + param
	}
	return dsn + "?" + param
}
