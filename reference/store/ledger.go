package store

import (
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Ledger is the gorm-backed durable mirror of UpdateState/OuterReference.
// Row primary keys are google/uuid values rather than the attachment id
// itself: the attachment id is a per-process monotonic counter (package
// ids), so two merged workspaces could otherwise collide on primary key,
// grounded on evalgo-org-eve's and junjiewwang-perf-analysis's google/uuid
// use for row identifiers (spec.md §4.5).
type Ledger struct {
	db *gorm.DB
}

// Open opens (creating if absent) the sqlite-backed ledger at path and
// migrates its schema.
func Open(path string) (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&StateRow{}, &ReferenceRow{}); err != nil {
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying database connection.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertState writes back the cache's observed mtime for an entry (spec.md
// §4.5 "Publishing... upserts UpdateState.last_update_file_time_ns").
func (l *Ledger) UpsertState(attachmentID uint64, typ, name string, lastUpdateFileTimeNs int64) error {
	var existing StateRow
	err := l.db.Where("attachment_id = ?", attachmentID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return l.db.Create(&StateRow{
			ID: uuid.NewString(), AttachmentID: attachmentID, Type: typ, Name: name,
			LastUpdateFileTimeNs: lastUpdateFileTimeNs,
		}).Error
	}
	if err != nil {
		return err
	}
	existing.LastUpdateFileTimeNs = lastUpdateFileTimeNs
	return l.db.Save(&existing).Error
}

// LoadState returns the stored state row for an entry, if any.
func (l *Ledger) LoadState(attachmentID uint64) (StateRow, bool, error) {
	var row StateRow
	err := l.db.Where("attachment_id = ?", attachmentID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return StateRow{}, false, nil
	}
	return row, err == nil, err
}

// ReplaceReferences overwrites every stored reference row for an entry
// with refs, mirroring the in-memory repository's by-slot reconciliation
// on the durable side.
func (l *Ledger) ReplaceReferences(attachmentID uint64, refs []ReferenceRow) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("attachment_id = ?", attachmentID).Delete(&ReferenceRow{}).Error; err != nil {
			return err
		}
		for i := range refs {
			refs[i].AttachmentID = attachmentID
			if refs[i].ID == "" {
				refs[i].ID = uuid.NewString()
			}
			if err := tx.Create(&refs[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadReferences returns every stored reference row for an entry.
func (l *Ledger) LoadReferences(attachmentID uint64) ([]ReferenceRow, error) {
	var rows []ReferenceRow
	err := l.db.Where("attachment_id = ?", attachmentID).Find(&rows).Error
	return rows, err
}
