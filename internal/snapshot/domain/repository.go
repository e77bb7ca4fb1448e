package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByVMDay(ctx context.Context, tx *gorm.DB, vmID snowflake.ID, day time.Time) (*ResourceSnapshot, error)
	// Upsert writes the snapshot, replacing any existing row for the same
	// (vm_id, day). The last reading for a day is authoritative.
	Upsert(ctx context.Context, tx *gorm.DB, snapshot *ResourceSnapshot) error
	ListByCompanyRange(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, from, to time.Time) ([]ResourceSnapshot, error)
	ListByVMRange(ctx context.Context, tx *gorm.DB, vmID snowflake.ID, from, to time.Time) ([]ResourceSnapshot, error)
}
