package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// VMError records a single machine's collection failure without failing
// the batch.
type VMError struct {
	VMID   snowflake.ID `json:"vm_id"`
	Reason string       `json:"reason"`
}

// CollectResult summarizes one collector invocation. Created counts new
// or changed readings, Skipped counts days whose reading was already
// recorded with identical values.
type CollectResult struct {
	Created int       `json:"created"`
	Skipped int       `json:"skipped"`
	Errors  []VMError `json:"errors,omitempty"`
}

func (r CollectResult) Failed() int { return len(r.Errors) }

type Collector interface {
	CollectDailySnapshots(ctx context.Context, asOfDay time.Time) (CollectResult, error)
}

var (
	ErrInventoryUnavailable = errors.New("inventory_unavailable")
)
