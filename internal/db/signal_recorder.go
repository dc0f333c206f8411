// Package db persists signal and post-mortem events for operators who
// want a durable record beyond the process lifetime. Entirely optional:
// nothing in the gate or post-mortem scheduler depends on it succeeding.
package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SignalRecord is the database model for one emitted signal.
type SignalRecord struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	Token         string    `gorm:"index;not null"`
	Chain         string    `gorm:"index;not null"`
	SignalTime    time.Time `gorm:"index;not null"`
	MarketCapUSD  float64   `gorm:"not null"`
	LiquidityUSD  float64   `gorm:"not null"`
	LatencySecs   float64   `gorm:"not null"`
	Classification string   `gorm:"comment:post-mortem outcome, empty until classified"`
	ChangePct      float64
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (SignalRecord) TableName() string {
	return "signals"
}

// MySQLRecorder persists signal and post-mortem events via GORM and MySQL.
type MySQLRecorder struct {
	db *gorm.DB
}

// NewMySQLRecorder opens a connection and migrates the schema.
// dsn format: "user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
func NewMySQLRecorder(dsn string) (*MySQLRecorder, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	if err := db.AutoMigrate(&SignalRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &MySQLRecorder{db: db}, nil
}

// NewMySQLRecorderWithDB wraps an already-open GORM DB (used by tests with
// go-sqlmock).
func NewMySQLRecorderWithDB(db *gorm.DB) (*MySQLRecorder, error) {
	if err := db.AutoMigrate(&SignalRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &MySQLRecorder{db: db}, nil
}

// RecordSignal inserts a new row for a just-fired signal.
func (r *MySQLRecorder) RecordSignal(token, chain string, signalTime time.Time, mcapUSD, liquidityUSD, latencySecs float64) error {
	record := SignalRecord{
		Token:        token,
		Chain:        chain,
		SignalTime:   signalTime,
		MarketCapUSD: mcapUSD,
		LiquidityUSD: liquidityUSD,
		LatencySecs:  latencySecs,
	}
	if result := r.db.Create(&record); result.Error != nil {
		return fmt.Errorf("failed to record signal: %w", result.Error)
	}
	return nil
}

// RecordClassification updates the row for token/signalTime with its
// post-mortem outcome.
func (r *MySQLRecorder) RecordClassification(token string, signalTime time.Time, classification string, changePct float64) error {
	result := r.db.Model(&SignalRecord{}).
		Where("token = ? AND signal_time = ?", token, signalTime).
		Updates(map[string]interface{}{
			"classification": classification,
			"change_pct":     changePct,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to record classification: %w", result.Error)
	}
	return nil
}

// GetDB returns the underlying GORM DB instance for advanced queries.
func (r *MySQLRecorder) GetDB() *gorm.DB {
	return r.db
}

// Close closes the database connection.
func (r *MySQLRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}
	return sqlDB.Close()
}

// RecentSignals retrieves signals within a time range, newest last.
func (r *MySQLRecorder) RecentSignals(start, end time.Time) ([]SignalRecord, error) {
	var records []SignalRecord
	result := r.db.Where("signal_time BETWEEN ? AND ?", start, end).
		Order("signal_time ASC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get signals by time range: %w", result.Error)
	}
	return records, nil
}

// CountSignals returns the total number of recorded signals.
func (r *MySQLRecorder) CountSignals() (int64, error) {
	var count int64
	result := r.db.Model(&SignalRecord{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count signals: %w", result.Error)
	}
	return count, nil
}
