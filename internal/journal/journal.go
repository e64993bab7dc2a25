// Package journal records every submission attempt a station makes.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anmicius0/unit-batch-station/internal/utils"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Result is the outcome of a submission attempt.
type Result string

const (
	ResultSuccess               Result = "success"
	ResultRejected              Result = "rejected"
	ResultConfirmationRequested Result = "confirmation_requested"
	ResultTransportError        Result = "transport_error"
)

var ErrUnknownDriver = errors.New("unknown journal driver")

// Line is one product of a submission.
type Line struct {
	UnitNumber  string `json:"unitNumber"`
	ProductCode string `json:"productCode"`
	Status      string `json:"status,omitempty"`
}

// Entry is one submission attempt.
type Entry struct {
	ID        uint
	SessionID string
	Workflow  string
	Operation string
	Reference string
	Lines     []Line
	Result    Result
	Message   string
	CreatedAt time.Time
}

// Recorder stores submission attempts.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// SubmissionRecord is the row stored in the submissions table.
type SubmissionRecord struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"size:36;index"`
	Workflow  string `gorm:"size:32;index"`
	Operation string `gorm:"size:64"`
	Reference string `gorm:"size:64;index"`
	ItemCount int
	Result    string `gorm:"size:32"`
	Message   string `gorm:"size:512"`
	Items     string `gorm:"type:text"`
	CreatedAt time.Time
}

func (SubmissionRecord) TableName() string { return "submissions" }

// Store is a gorm backed Recorder.
type Store struct {
	db *gorm.DB
}

// Open connects to the journal database and migrates the submissions table.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.AutoMigrate(&SubmissionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	utils.WithComponent("journal").Info("Journal opened", zap.String("driver", driver))
	return &Store{db: db}, nil
}

// Record inserts e. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	items, err := json.Marshal(e.Lines)
	if err != nil {
		return fmt.Errorf("encode journal items: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	rec := SubmissionRecord{
		SessionID: e.SessionID,
		Workflow:  e.Workflow,
		Operation: e.Operation,
		Reference: e.Reference,
		ItemCount: len(e.Lines),
		Result:    string(e.Result),
		Message:   truncate(e.Message, 512),
		Items:     string(items),
		CreatedAt: e.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// Filter narrows List.
type Filter struct {
	SessionID string
	Workflow  string
	Limit     int
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	q := s.db.WithContext(ctx).Model(&SubmissionRecord{}).Order("created_at desc, id desc")
	if f.SessionID != "" {
		q = q.Where("session_id = ?", f.SessionID)
	}
	if f.Workflow != "" {
		q = q.Where("workflow = ?", f.Workflow)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var records []SubmissionRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	out := make([]Entry, 0, len(records))
	for _, rec := range records {
		e := Entry{
			ID:        rec.ID,
			SessionID: rec.SessionID,
			Workflow:  rec.Workflow,
			Operation: rec.Operation,
			Reference: rec.Reference,
			Result:    Result(rec.Result),
			Message:   rec.Message,
			CreatedAt: rec.CreatedAt,
		}
		if rec.Items != "" {
			if err := json.Unmarshal([]byte(rec.Items), &e.Lines); err != nil {
				return nil, fmt.Errorf("decode journal items %d: %w", rec.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
