package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	snapshotdomain "github.com/smallbiznis/fleetbill/internal/snapshot/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRepo(t *testing.T) (snapshotdomain.Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// :memory: gives every pooled connection its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&snapshotdomain.ResourceSnapshot{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{}), db, node
}

func TestUpsert_ReplacesSameDayReading(t *testing.T) {
	repo, db, node := newRepo(t)
	ctx := context.Background()
	vmID := node.Generate()
	companyID := node.Generate()
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, db, &snapshotdomain.ResourceSnapshot{
		ID: node.Generate(), VMID: vmID, CompanyID: companyID, Day: day,
		CPUCores: 4, MemoryMB: 8192, StorageGB: 100, CollectedAt: day,
	}))
	require.NoError(t, repo.Upsert(ctx, db, &snapshotdomain.ResourceSnapshot{
		ID: node.Generate(), VMID: vmID, CompanyID: companyID, Day: day,
		CPUCores: 8, MemoryMB: 16384, StorageGB: 100, CollectedAt: day.Add(6 * time.Hour),
	}))

	var rows []snapshotdomain.ResourceSnapshot
	require.NoError(t, db.Where("vm_id = ?", vmID).Find(&rows).Error)
	require.Len(t, rows, 1, "second reading for the same day must replace, not duplicate")
	assert.Equal(t, int64(8), rows[0].CPUCores)
	assert.Equal(t, int64(16384), rows[0].MemoryMB)
}

func TestUpsert_DistinctDaysKeepDistinctRows(t *testing.T) {
	repo, db, node := newRepo(t)
	ctx := context.Background()
	vmID := node.Generate()
	companyID := node.Generate()
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Upsert(ctx, db, &snapshotdomain.ResourceSnapshot{
			ID: node.Generate(), VMID: vmID, CompanyID: companyID,
			Day:      day.AddDate(0, 0, i),
			CPUCores: 4, MemoryMB: 8192, StorageGB: 100, CollectedAt: day,
		}))
	}

	var count int64
	require.NoError(t, db.Model(&snapshotdomain.ResourceSnapshot{}).
		Where("vm_id = ?", vmID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
