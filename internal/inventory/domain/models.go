// Package domain defines the read-only inventory collaborator the
// metering collector consumes. The console's VM CRUD owns the data;
// the engine only ever reads it.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// VMState mirrors the console's machine lifecycle. The collector only
// cares whether a state is terminal.
type VMState string

const (
	VMStateProvisioning VMState = "provisioning"
	VMStateRunning      VMState = "running"
	VMStateStopped      VMState = "stopped"
	VMStateDeleted      VMState = "deleted"
	VMStateFailed       VMState = "failed"
)

func (s VMState) Terminal() bool {
	return s == VMStateDeleted || s == VMStateFailed
}

// VMRef identifies a machine and its owning company.
type VMRef struct {
	ID        snowflake.ID
	CompanyID snowflake.ID
}

// Allocation is a machine's currently reserved resources. Billing is on
// allocation, not utilization.
type Allocation struct {
	CPUCores  int64
	MemoryMB  int64
	StorageGB int64
}

// VM is the console-owned machine row backing the default adapter.
type VM struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	CompanyID snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`
	State     VMState      `gorm:"type:text;not null"`
	CPUCores  int64        `gorm:"not null"`
	MemoryMB  int64        `gorm:"not null"`
	StorageGB int64        `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (VM) TableName() string { return "vms" }

// Service is the collaborator contract. ListActiveVMs excludes machines
// in terminal states; GetAllocation may fail per machine without
// implying anything about the rest of the fleet.
type Service interface {
	ListActiveVMs(ctx context.Context) ([]VMRef, error)
	GetAllocation(ctx context.Context, vmID snowflake.ID) (Allocation, error)
}

var (
	ErrVMNotFound = errors.New("vm_not_found")
)
