// Package store is the on-disk persistence side of the reference manager:
// a gorm-over-sqlite ledger mirroring UpdateState/OuterReference so a
// restart can rebuild the in-memory repository without rescanning every
// cache file, plus the flat-file DetectedReferenceContainer cache spec.md
// §6 fixes, fronted by a bounded in-memory cache. Grounded on
// junjiewwang-perf-analysis/internal/repository's gorm-over-sqlite
// repository pattern and evalgo-org-eve/auth/storage_couchdb.go's
// repository-interface-over-driver shape.
package store

import "time"

// StateRow mirrors one UpdateState plus its owning entry's identity, so a
// restart can answer "was this entry scanned, and when" without touching
// the cache files (spec.md §4.5 "Cache layout").
type StateRow struct {
	ID                   string `gorm:"primaryKey"`
	AttachmentID         uint64 `gorm:"uniqueIndex"`
	Type                 string
	Name                 string
	LastUpdateFileTimeNs int64
	UpdatedAt            time.Time
}

// TableName pins the gorm table name rather than relying on pluralization
// of the Go type name.
func (StateRow) TableName() string { return "kan_reference_state" }

// ReferenceRow mirrors one OuterReference row.
type ReferenceRow struct {
	ID            string `gorm:"primaryKey"`
	AttachmentID  uint64 `gorm:"index"`
	ReferenceType string
	ReferenceName string
}

func (ReferenceRow) TableName() string { return "kan_outer_reference" }
