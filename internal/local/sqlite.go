package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bill-backend/internal/billing"
	"bill-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// billRecord stores the canonical bill JSON. Seq is assigned on first
// insert and never touched by later upserts, so it records storage order.
type billRecord struct {
	Seq           int64  `gorm:"primaryKey;autoIncrement"`
	InvoiceNumber string `gorm:"uniqueIndex;not null"`
	Payload       []byte `gorm:"not null"`
	UpdatedAt     time.Time
}

func (billRecord) TableName() string { return "bills" }

// draftRecord is a single-row table holding the cart snapshot
type draftRecord struct {
	ID        uint `gorm:"primaryKey"`
	Payload   []byte
	UpdatedAt time.Time
}

func (draftRecord) TableName() string { return "draft" }

const draftRowID = 1

// Open opens (creating if needed) the SQLite file at dsn and migrates the
// bill and draft tables. Use "file:<name>?mode=memory&cache=shared" for an
// in-memory database.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open local store %s: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection serialises writes per key
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&billRecord{}, &draftRecord{}); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return db, nil
}

// SQLiteStore is the BillStore backed by the on-device database
type SQLiteStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db, log: zap.L().Named("local")}
}

func (s *SQLiteStore) Get(ctx context.Context, invoiceNumber string) (*models.Bill, error) {
	var rec billRecord
	err := s.db.WithContext(ctx).Where("invoice_number = ?", invoiceNumber).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bill %s: %w", invoiceNumber, err)
	}

	bill, err := billing.NormalizeJSON(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode bill %s: %w", invoiceNumber, err)
	}
	return &bill, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, bill models.Bill) error {
	payload, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("encode bill %s: %w", bill.InvoiceNumber, err)
	}

	rec := billRecord{
		InvoiceNumber: bill.InvoiceNumber,
		Payload:       payload,
		UpdatedAt:     time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invoice_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert bill %s: %w", bill.InvoiceNumber, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.Bill, error) {
	var recs []billRecord
	if err := s.db.WithContext(ctx).Order("seq ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	bills := make([]models.Bill, 0, len(recs))
	for _, rec := range recs {
		bill, err := billing.NormalizeJSON(rec.Payload)
		if err != nil {
			s.log.Warn("skipping unreadable bill", zap.String("invoice_number", rec.InvoiceNumber), zap.Error(err))
			continue
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, invoiceNumber string) error {
	err := s.db.WithContext(ctx).Where("invoice_number = ?", invoiceNumber).Delete(&billRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", invoiceNumber, err)
	}
	return nil
}

// SQLiteDraftStore persists the cart snapshot next to the bills
type SQLiteDraftStore struct {
	db *gorm.DB
}

func NewSQLiteDraftStore(db *gorm.DB) *SQLiteDraftStore {
	return &SQLiteDraftStore{db: db}
}

func (s *SQLiteDraftStore) LoadDraft(ctx context.Context) (*models.Draft, error) {
	var rec draftRecord
	err := s.db.WithContext(ctx).Where("id = ?", draftRowID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	var draft models.Draft
	if err := json.Unmarshal(rec.Payload, &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &draft, nil
}

func (s *SQLiteDraftStore) SaveDraft(ctx context.Context, draft models.Draft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	rec := draftRecord{ID: draftRowID, Payload: payload, UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}
