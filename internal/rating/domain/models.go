// Package domain defines the bill-estimate shapes produced by the
// rating service. Estimates are pure computations over the snapshot
// ledger and a pricing plan; nothing here is persisted.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DimensionUsage is one resource dimension's month aggregate and the
// overage derived from it. Used is the company-level total (sum of
// per-VM daily averages); the overage is computed once at this level,
// never per VM, so rounding cannot drift.
type DimensionUsage struct {
	Used          decimal.Decimal `json:"used"`
	Included      decimal.Decimal `json:"included"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	OverageUnits  decimal.Decimal `json:"overage_units"`
	OverageAmount decimal.Decimal `json:"overage_amount"`
}

// VMCost is one machine's share of the month. Amount is an allocation
// of the company-level overage, proportional to the machine's usage;
// the per-VM amounts always sum back to the overage total.
type VMCost struct {
	VMID         snowflake.ID    `json:"vm_id"`
	Days         int             `json:"days"`
	AvgCPUCores  decimal.Decimal `json:"avg_cpu_cores"`
	AvgMemoryGB  decimal.Decimal `json:"avg_memory_gb"`
	AvgStorageGB decimal.Decimal `json:"avg_storage_gb"`
	Amount       decimal.Decimal `json:"amount"`
}

// BillEstimate is the full cost breakdown for one company and month.
type BillEstimate struct {
	CompanyID   snowflake.ID `json:"company_id"`
	PlanID      snowflake.ID `json:"plan_id"`
	PlanName    string       `json:"plan_name"`
	Currency    string       `json:"currency"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`

	CPU     DimensionUsage `json:"cpu"`
	Memory  DimensionUsage `json:"memory"`
	Storage DimensionUsage `json:"storage"`

	BaseFee  decimal.Decimal `json:"base_fee"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Total    decimal.Decimal `json:"total"`

	VMs []VMCost `json:"vms"`
}

// OverageTotal sums the three dimension overages.
func (e BillEstimate) OverageTotal() decimal.Decimal {
	return e.CPU.OverageAmount.
		Add(e.Memory.OverageAmount).
		Add(e.Storage.OverageAmount)
}

// MonthStart normalizes t to the first day of its month, UTC midnight.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
