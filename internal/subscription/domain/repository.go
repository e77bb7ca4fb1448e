package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, sub *CompanySubscription) error
	Update(ctx context.Context, tx *gorm.DB, sub *CompanySubscription) error
	FindByCompany(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (*CompanySubscription, error)
	// ClaimDue locks due rows with SKIP LOCKED so two concurrent sweeps
	// split the work instead of blocking on each other. Callers run it
	// inside a short transaction and stamp last_attempt_at before
	// releasing the locks.
	ClaimDue(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]CompanySubscription, error)
	ListActiveWithRef(ctx context.Context, tx *gorm.DB) ([]CompanySubscription, error)
	ListSuspendedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) ([]CompanySubscription, error)
}
