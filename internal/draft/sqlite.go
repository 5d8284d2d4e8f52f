package draft

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tableside/tableside/pkg/types"
)

// draftLineRecord is the sqlite row shape. Unit prices are stored as the
// wire string so no precision is lost round-tripping through the cache.
type draftLineRecord struct {
	ID         uint   `gorm:"primaryKey"`
	StorageKey string `gorm:"index;size:128"`
	Position   int
	DishID     int64
	Name       string
	UnitPrice  string
	Quantity   int
}

func (draftLineRecord) TableName() string {
	return "draft_lines"
}

// SQLitePersistence is the default durable backend: a local file database
// acting as the device's storage.
type SQLitePersistence struct {
	db         *gorm.DB
	storageKey string
}

// NewSQLitePersistence opens (or creates) the database file and migrates
// the draft table.
func NewSQLitePersistence(path, storageKey string) (*SQLitePersistence, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path required")
	}
	if storageKey == "" {
		return nil, fmt.Errorf("storage key required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&draftLineRecord{}); err != nil {
		return nil, fmt.Errorf("migrate draft table: %w", err)
	}
	return &SQLitePersistence{db: db, storageKey: storageKey}, nil
}

func (p *SQLitePersistence) Load(ctx context.Context) ([]Line, error) {
	var records []draftLineRecord
	err := p.db.WithContext(ctx).
		Where("storage_key = ?", p.storageKey).
		Order("position asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load draft lines: %w", err)
	}
	lines := make([]Line, 0, len(records))
	for _, record := range records {
		price, err := types.ParseMoney(record.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("corrupt price for dish %d: %w", record.DishID, err)
		}
		lines = append(lines, Line{
			DishID:    record.DishID,
			Name:      record.Name,
			UnitPrice: price,
			Quantity:  record.Quantity,
		})
	}
	return lines, nil
}

func (p *SQLitePersistence) Save(ctx context.Context, lines []Line) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("storage_key = ?", p.storageKey).Delete(&draftLineRecord{}).Error; err != nil {
			return fmt.Errorf("clear previous draft: %w", err)
		}
		if len(lines) == 0 {
			return nil
		}
		records := make([]draftLineRecord, 0, len(lines))
		for i, line := range lines {
			records = append(records, draftLineRecord{
				StorageKey: p.storageKey,
				Position:   i,
				DishID:     line.DishID,
				Name:       line.Name,
				UnitPrice:  line.UnitPrice.String(),
				Quantity:   line.Quantity,
			})
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("persist draft lines: %w", err)
		}
		return nil
	})
}

func (p *SQLitePersistence) Wipe(ctx context.Context) error {
	err := p.db.WithContext(ctx).
		Where("storage_key = ?", p.storageKey).
		Delete(&draftLineRecord{}).Error
	if err != nil {
		return fmt.Errorf("wipe draft lines: %w", err)
	}
	return nil
}
