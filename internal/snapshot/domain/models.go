// Package domain contains the immutable metering ledger models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ResourceSnapshot is one day's recorded allocation for one VM. Rows are
// append-only and uniquely keyed by (vm_id, day); the collector may
// overwrite the same day's values but nothing ever deletes a row.
type ResourceSnapshot struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	VMID        snowflake.ID `gorm:"column:vm_id;not null;uniqueIndex:idx_snapshots_vm_day,priority:1"`
	CompanyID   snowflake.ID `gorm:"not null;index:idx_snapshots_company_day,priority:1"`
	Day         time.Time    `gorm:"not null;uniqueIndex:idx_snapshots_vm_day,priority:2;index:idx_snapshots_company_day,priority:2"`
	CPUCores    int64        `gorm:"not null"`
	MemoryMB    int64        `gorm:"not null"`
	StorageGB   int64        `gorm:"not null"`
	CollectedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (ResourceSnapshot) TableName() string { return "resource_snapshots" }

// SameReading reports whether other records identical allocation values.
func (s ResourceSnapshot) SameReading(other ResourceSnapshot) bool {
	return s.CPUCores == other.CPUCores &&
		s.MemoryMB == other.MemoryMB &&
		s.StorageGB == other.StorageGB
}

// DayOf normalizes t to UTC midnight, the canonical snapshot key.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
