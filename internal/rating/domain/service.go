package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service computes monthly bill estimates. EstimateMonth returns
// (nil, nil) when the company has no billing account or no assigned
// plan; callers treat that as "not billable", never as a failure.
type Service interface {
	EstimateMonth(ctx context.Context, companyID snowflake.ID, month time.Time) (*BillEstimate, error)
}

var (
	ErrPlanMissing = errors.New("assigned_plan_missing")
)
