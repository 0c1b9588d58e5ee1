package kv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/babetranslator-backend/internal/platform/logger"
)

// StateEntry is the single table behind the SQL backend.
type StateEntry struct {
	Key       string         `gorm:"column:state_key;primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"column:value;not null" json:"value"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (StateEntry) TableName() string { return "state_entry" }

type SQL struct {
	db  *gorm.DB
	log *logger.Logger
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             1 * time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}

// OpenPostgres connects through pgx's database/sql adapter so pool settings
// parsed from the DSN are honoured.
func OpenPostgres(logg *logger.Logger, dsn string) (*SQL, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing postgres dsn")
	}
	pgxCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	sqlDB := stdlib.OpenDB(*pgxCfg)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return newSQL(logg, db)
}

func OpenSQLite(logg *logger.Logger, path string) (*SQL, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing sqlite path")
	}
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return newSQL(logg, db)
}

func newSQL(logg *logger.Logger, db *gorm.DB) (*SQL, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := db.AutoMigrate(&StateEntry{}); err != nil {
		return nil, fmt.Errorf("state_entry automigrate: %w", err)
	}
	return &SQL{db: db, log: logg.With("service", "SQLStateStore")}, nil
}

func (s *SQL) DB() *gorm.DB { return s.db }

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var row StateEntry
	err := s.db.WithContext(ctx).Where("state_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Value), nil
}

func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC()
	row := StateEntry{Key: key, Value: datatypes.JSON(cloneBytes(value)), CreatedAt: now, UpdatedAt: now}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "state_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *SQL) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	now := time.Now().UTC()
	row := StateEntry{Key: key, Value: datatypes.JSON(cloneBytes(value)), CreatedAt: now, UpdatedAt: now}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return true, nil
	}
	if isUniqueViolation(err) {
		return false, nil
	}
	return false, err
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key value")
}

func (s *SQL) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
