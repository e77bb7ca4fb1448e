package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	snapshotdomain "github.com/smallbiznis/fleetbill/internal/snapshot/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct{}

type Params struct {
	fx.In
}

func New(p Params) snapshotdomain.Repository {
	return &repository{}
}

func (r *repository) FindByVMDay(ctx context.Context, tx *gorm.DB, vmID snowflake.ID, day time.Time) (*snapshotdomain.ResourceSnapshot, error) {
	var row snapshotdomain.ResourceSnapshot
	err := tx.WithContext(ctx).
		Where("vm_id = ? AND day = ?", vmID, snapshotdomain.DayOf(day)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) Upsert(ctx context.Context, tx *gorm.DB, snapshot *snapshotdomain.ResourceSnapshot) error {
	snapshot.Day = snapshotdomain.DayOf(snapshot.Day)
	// The clause builder renders the dialect's native upsert, so the
	// same call works on postgres, mysql and sqlite.
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vm_id"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"cpu_cores", "memory_mb", "storage_gb", "collected_at"}),
		}).
		Create(snapshot).Error
}

func (r *repository) ListByCompanyRange(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, from, to time.Time) ([]snapshotdomain.ResourceSnapshot, error) {
	var rows []snapshotdomain.ResourceSnapshot
	err := tx.WithContext(ctx).
		Where("company_id = ? AND day >= ? AND day < ?", companyID, snapshotdomain.DayOf(from), snapshotdomain.DayOf(to)).
		Order("vm_id ASC, day ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByVMRange(ctx context.Context, tx *gorm.DB, vmID snowflake.ID, from, to time.Time) ([]snapshotdomain.ResourceSnapshot, error) {
	var rows []snapshotdomain.ResourceSnapshot
	err := tx.WithContext(ctx).
		Where("vm_id = ? AND day >= ? AND day < ?", vmID, snapshotdomain.DayOf(from), snapshotdomain.DayOf(to)).
		Order("day ASC").
		Find(&rows).Error
	return rows, err
}
