package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	inventorydomain "github.com/smallbiznis/fleetbill/internal/inventory/domain"
	snapshotdomain "github.com/smallbiznis/fleetbill/internal/snapshot/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      snapshotdomain.Repository
	Inventory inventorydomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      snapshotdomain.Repository
	inventory inventorydomain.Service
}

func New(p Params) snapshotdomain.Collector {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("snapshot.collector"),
		genID:     p.GenID,
		repo:      p.Repo,
		inventory: p.Inventory,
	}
}

// CollectDailySnapshots records the current allocation of every active
// VM under the (vm_id, asOfDay) key. Allocation can change intraday and
// the last reading of the day wins. Identical
// re-readings are skipped without a write so re-runs stay cheap.
func (s *Service) CollectDailySnapshots(ctx context.Context, asOfDay time.Time) (snapshotdomain.CollectResult, error) {
	day := snapshotdomain.DayOf(asOfDay)
	result := snapshotdomain.CollectResult{}

	vms, err := s.inventory.ListActiveVMs(ctx)
	if err != nil {
		// Without the VM list there is nothing to iterate; this is the
		// batch-fatal case, unlike a single machine's lookup failure.
		return result, snapshotdomain.ErrInventoryUnavailable
	}

	for _, vm := range vms {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		written, err := s.collectOne(ctx, vm, day)
		if err != nil {
			result.Errors = append(result.Errors, snapshotdomain.VMError{
				VMID:   vm.ID,
				Reason: err.Error(),
			})
			s.log.Warn("snapshot collection failed for vm",
				zap.String("vm_id", vm.ID.String()),
				zap.String("company_id", vm.CompanyID.String()),
				zap.Time("day", day),
				zap.Error(err),
			)
			continue
		}
		if written {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	s.log.Info("daily snapshot collection finished",
		zap.Time("day", day),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed()),
	)
	return result, nil
}

// collectOne returns whether a row was written (new or overwritten) as
// opposed to skipped for an identical existing reading.
func (s *Service) collectOne(ctx context.Context, vm inventorydomain.VMRef, day time.Time) (bool, error) {
	alloc, err := s.inventory.GetAllocation(ctx, vm.ID)
	if err != nil {
		return false, err
	}

	written := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByVMDay(ctx, tx, vm.ID, day)
		if err != nil {
			return err
		}

		next := snapshotdomain.ResourceSnapshot{
			ID:          s.genID.Generate(),
			VMID:        vm.ID,
			CompanyID:   vm.CompanyID,
			Day:         day,
			CPUCores:    alloc.CPUCores,
			MemoryMB:    alloc.MemoryMB,
			StorageGB:   alloc.StorageGB,
			CollectedAt: time.Now().UTC(),
		}

		if existing != nil {
			if existing.SameReading(next) {
				return nil
			}
			next.ID = existing.ID
		}
		written = true
		return s.repo.Upsert(ctx, tx, &next)
	})
	return written, err
}
