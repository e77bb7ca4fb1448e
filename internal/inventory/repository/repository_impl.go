package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	inventorydomain "github.com/smallbiznis/fleetbill/internal/inventory/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// adapter serves inventory reads straight from the console's vms table.
// Deployments that split the console from the engine swap this for an
// RPC-backed implementation of the same interface.
type adapter struct {
	db *gorm.DB
}

type Params struct {
	fx.In

	DB *gorm.DB
}

func New(p Params) inventorydomain.Service {
	return &adapter{db: p.DB}
}

func (a *adapter) ListActiveVMs(ctx context.Context) ([]inventorydomain.VMRef, error) {
	var refs []inventorydomain.VMRef
	err := a.db.WithContext(ctx).Raw(
		`SELECT id, company_id
		 FROM vms
		 WHERE state NOT IN (?, ?)
		 ORDER BY id`,
		inventorydomain.VMStateDeleted,
		inventorydomain.VMStateFailed,
	).Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (a *adapter) GetAllocation(ctx context.Context, vmID snowflake.ID) (inventorydomain.Allocation, error) {
	var vm inventorydomain.VM
	err := a.db.WithContext(ctx).Where("id = ?", vmID).First(&vm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventorydomain.Allocation{}, inventorydomain.ErrVMNotFound
		}
		return inventorydomain.Allocation{}, err
	}
	return inventorydomain.Allocation{
		CPUCores:  vm.CPUCores,
		MemoryMB:  vm.MemoryMB,
		StorageGB: vm.StorageGB,
	}, nil
}
