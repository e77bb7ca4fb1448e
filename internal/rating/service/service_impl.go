package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/fleetbill/internal/billingaccount/domain"
	plandomain "github.com/smallbiznis/fleetbill/internal/plan/domain"
	ratingdomain "github.com/smallbiznis/fleetbill/internal/rating/domain"
	snapshotdomain "github.com/smallbiznis/fleetbill/internal/snapshot/domain"
	"github.com/smallbiznis/fleetbill/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var mbPerGB = decimal.NewFromInt(1024)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	AccountRepo  accountdomain.Repository
	PlanRepo     plandomain.Repository
	SnapshotRepo snapshotdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	accountRepo  accountdomain.Repository
	planRepo     plandomain.Repository
	snapshotRepo snapshotdomain.Repository
}

func New(p Params) ratingdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("rating.service"),
		accountRepo:  p.AccountRepo,
		planRepo:     p.PlanRepo,
		snapshotRepo: p.SnapshotRepo,
	}
}

// EstimateMonth aggregates the company's snapshot ledger for the month
// and prices it against the assigned plan.
//
// Aggregation policy: each VM contributes the average of its daily
// readings (per dimension, 2dp), company totals are the sum of per-VM
// averages, and overage is computed once per dimension at the company
// level. Averaging smooths transient allocation spikes; a partial month
// simply averages over the days that exist, so mid-cycle estimates work
// on whatever the collector has recorded so far.
func (s *Service) EstimateMonth(ctx context.Context, companyID snowflake.ID, month time.Time) (*ratingdomain.BillEstimate, error) {
	account, err := s.accountRepo.FindByCompany(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.PlanID == nil {
		// Not billable. Callers must not treat this as a failure.
		return nil, nil
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, *account.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		// An assigned plan that no longer exists is a data invariant
		// violation, not a "no plan" business state.
		return nil, ratingdomain.ErrPlanMissing
	}

	periodStart := ratingdomain.MonthStart(month)
	periodEnd := periodStart.AddDate(0, 1, 0)

	rows, err := s.snapshotRepo.ListByCompanyRange(ctx, s.db, companyID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	vms := aggregateByVM(rows)

	totalCPU, totalMemGB, totalStorage := decimal.Zero, decimal.Zero, decimal.Zero
	for _, vm := range vms {
		totalCPU = totalCPU.Add(vm.AvgCPUCores)
		totalMemGB = totalMemGB.Add(vm.AvgMemoryGB)
		totalStorage = totalStorage.Add(vm.AvgStorageGB)
	}

	estimate := &ratingdomain.BillEstimate{
		CompanyID:   companyID,
		PlanID:      plan.ID,
		PlanName:    plan.Name,
		Currency:    plan.Currency,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CPU:         dimension(totalCPU, plan.IncludedCPUCores, plan.OverageCPUCorePrice),
		Memory:      dimension(totalMemGB, plan.IncludedMemoryGB, plan.OverageMemoryGBPrice),
		Storage:     dimension(totalStorage, plan.IncludedStorageGB, plan.OverageStorageGBPrice),
		BaseFee:     money.Round(plan.BaseMonthlyPrice),
		VMs:         vms,
	}

	estimate.Subtotal = estimate.BaseFee.Add(estimate.OverageTotal())
	estimate.Total = estimate.Subtotal
	allocateVMCosts(estimate)

	return estimate, nil
}

func dimension(used decimal.Decimal, included int64, unitPrice decimal.Decimal) ratingdomain.DimensionUsage {
	inc := decimal.NewFromInt(included)
	return ratingdomain.DimensionUsage{
		Used:          used,
		Included:      inc,
		UnitPrice:     unitPrice,
		OverageUnits:  money.OverageUnits(used, inc),
		OverageAmount: money.Overage(used, inc, unitPrice),
	}
}

func aggregateByVM(rows []snapshotdomain.ResourceSnapshot) []ratingdomain.VMCost {
	type acc struct {
		days    int64
		cpu     decimal.Decimal
		memMB   decimal.Decimal
		storage decimal.Decimal
	}
	byVM := make(map[snowflake.ID]*acc)
	for _, row := range rows {
		a, ok := byVM[row.VMID]
		if !ok {
			a = &acc{}
			byVM[row.VMID] = a
		}
		a.days++
		a.cpu = a.cpu.Add(decimal.NewFromInt(row.CPUCores))
		a.memMB = a.memMB.Add(decimal.NewFromInt(row.MemoryMB))
		a.storage = a.storage.Add(decimal.NewFromInt(row.StorageGB))
	}

	vms := make([]ratingdomain.VMCost, 0, len(byVM))
	for vmID, a := range byVM {
		days := decimal.NewFromInt(a.days)
		vms = append(vms, ratingdomain.VMCost{
			VMID:         vmID,
			Days:         int(a.days),
			AvgCPUCores:  a.cpu.Div(days).Round(2),
			AvgMemoryGB:  a.memMB.Div(mbPerGB).Div(days).Round(2),
			AvgStorageGB: a.storage.Div(days).Round(2),
			Amount:       decimal.Zero,
		})
	}
	sort.Slice(vms, func(i, j int) bool { return vms[i].VMID < vms[j].VMID })
	return vms
}

// allocateVMCosts distributes each dimension's company-level overage
// across VMs by usage share, then sums the shares per VM. The per-VM
// figures are a breakdown of the canonical company total, not an
// independent computation, so they can never disagree with it.
func allocateVMCosts(estimate *ratingdomain.BillEstimate) {
	if len(estimate.VMs) == 0 {
		return
	}

	cpuWeights := make([]decimal.Decimal, len(estimate.VMs))
	memWeights := make([]decimal.Decimal, len(estimate.VMs))
	storageWeights := make([]decimal.Decimal, len(estimate.VMs))
	for i, vm := range estimate.VMs {
		cpuWeights[i] = vm.AvgCPUCores
		memWeights[i] = vm.AvgMemoryGB
		storageWeights[i] = vm.AvgStorageGB
	}

	cpuShares := money.Allocate(estimate.CPU.OverageAmount, cpuWeights)
	memShares := money.Allocate(estimate.Memory.OverageAmount, memWeights)
	storageShares := money.Allocate(estimate.Storage.OverageAmount, storageWeights)

	for i := range estimate.VMs {
		estimate.VMs[i].Amount = cpuShares[i].Add(memShares[i]).Add(storageShares[i])
	}
}
