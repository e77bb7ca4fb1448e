package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/fleetbill/internal/billingaccount"
	"github.com/smallbiznis/fleetbill/internal/billingops"
	"github.com/smallbiznis/fleetbill/internal/clock"
	"github.com/smallbiznis/fleetbill/internal/config"
	"github.com/smallbiznis/fleetbill/internal/gateway"
	"github.com/smallbiznis/fleetbill/internal/inventory"
	"github.com/smallbiznis/fleetbill/internal/invoice"
	"github.com/smallbiznis/fleetbill/internal/migration"
	"github.com/smallbiznis/fleetbill/internal/plan"
	"github.com/smallbiznis/fleetbill/internal/rating"
	"github.com/smallbiznis/fleetbill/internal/scheduler"
	"github.com/smallbiznis/fleetbill/internal/snapshot"
	"github.com/smallbiznis/fleetbill/internal/subscription"
	"github.com/smallbiznis/fleetbill/pkg/db"
	"github.com/smallbiznis/fleetbill/pkg/log"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Functional domains
		plan.Module,
		billingaccount.Module,
		inventory.Module,
		snapshot.Module,
		rating.Module,
		invoice.Module,
		gateway.Module,
		subscription.Module,
		billingops.Module,
		scheduler.Module,
		migration.Module,

		fx.Invoke(RunJobs),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// RunJobs drives the batch scheduler off wall-clock cron triggers.
// Snapshots collect nightly, invoices bill the previous month on the
// 1st, and the subscription sweeps run each morning.
func RunJobs(lc fx.Lifecycle, sched *scheduler.Scheduler, logger *zap.Logger) error {
	runner := cron.New()
	jobs := []struct {
		spec string
		run  func(context.Context) error
	}{
		{"10 0 * * *", sched.RunDailySnapshots},
		{"0 1 1 * *", sched.RunMonthlyInvoices},
		{"0 2 * * *", sched.RunSubscriptionCharges},
		{"30 2 * * *", sched.RunCheckPastDue},
		{"0 3 * * *", sched.RunCancelPastDue},
	}
	for _, job := range jobs {
		run := job.run
		if _, err := runner.AddFunc(job.spec, func() {
			if err := run(context.Background()); err != nil {
				logger.Warn("scheduled job failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runner.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopped := runner.Stop()
			select {
			case <-stopped.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}
