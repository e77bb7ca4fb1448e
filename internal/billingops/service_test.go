package billingops

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/fleetbill/internal/invoice/domain"
	ratingdomain "github.com/smallbiznis/fleetbill/internal/rating/domain"
	snapshotdomain "github.com/smallbiznis/fleetbill/internal/snapshot/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ratingStub struct {
	estimate *ratingdomain.BillEstimate
	err      error
}

func (s *ratingStub) EstimateMonth(ctx context.Context, companyID snowflake.ID, month time.Time) (*ratingdomain.BillEstimate, error) {
	return s.estimate, s.err
}

type invoiceStub struct {
	outcome *invoicedomain.GenerateOutcome
	batch   invoicedomain.BatchResult
	listed  []invoicedomain.Invoice
}

func (s *invoiceStub) Generate(ctx context.Context, companyID snowflake.ID, month time.Time, initiatedBy string) (*invoicedomain.GenerateOutcome, error) {
	return s.outcome, nil
}

func (s *invoiceStub) GenerateMonthlyInvoices(ctx context.Context, month time.Time) (invoicedomain.BatchResult, error) {
	return s.batch, nil
}

func (s *invoiceStub) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, []invoicedomain.InvoiceLineItem, error) {
	return nil, nil, invoicedomain.ErrInvoiceNotFound
}

func (s *invoiceStub) ListByCompany(ctx context.Context, companyID snowflake.ID, limit int) ([]invoicedomain.Invoice, error) {
	return s.listed, nil
}

func (s *invoiceStub) MarkIssued(ctx context.Context, id snowflake.ID) error { return nil }
func (s *invoiceStub) MarkSent(ctx context.Context, id snowflake.ID) error   { return nil }
func (s *invoiceStub) MarkPaid(ctx context.Context, id snowflake.ID) error   { return nil }
func (s *invoiceStub) Void(ctx context.Context, id snowflake.ID) error       { return nil }

type collectorStub struct {
	result snapshotdomain.CollectResult
}

func (s *collectorStub) CollectDailySnapshots(ctx context.Context, asOfDay time.Time) (snapshotdomain.CollectResult, error) {
	return s.result, nil
}

type snapshotRepoStub struct {
	rows []snapshotdomain.ResourceSnapshot
}

func (s *snapshotRepoStub) FindByVMDay(ctx context.Context, tx *gorm.DB, vmID snowflake.ID, day time.Time) (*snapshotdomain.ResourceSnapshot, error) {
	return nil, nil
}

func (s *snapshotRepoStub) Upsert(ctx context.Context, tx *gorm.DB, snapshot *snapshotdomain.ResourceSnapshot) error {
	return nil
}

func (s *snapshotRepoStub) ListByCompanyRange(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, from, to time.Time) ([]snapshotdomain.ResourceSnapshot, error) {
	return nil, nil
}

func (s *snapshotRepoStub) ListByVMRange(ctx context.Context, tx *gorm.DB, vmID snowflake.ID, from, to time.Time) ([]snapshotdomain.ResourceSnapshot, error) {
	return s.rows, nil
}

func newService(rating *ratingStub, invoices *invoiceStub, collector *collectorStub) *Service {
	return New(Params{
		Log:       zap.NewNop(),
		Rating:    rating,
		Invoices:  invoices,
		Collector: collector,
		Snapshots: &snapshotRepoStub{},
	})
}

func TestGetBillingEstimate_Kinds(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	companyID := node.Generate()
	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	svc := newService(&ratingStub{}, &invoiceStub{}, &collectorStub{})
	result, err := svc.GetBillingEstimate(context.Background(), companyID, month)
	require.NoError(t, err)
	assert.Equal(t, KindNotBillable, result.Kind)
	assert.Nil(t, result.Estimate)

	svc = newService(&ratingStub{estimate: &ratingdomain.BillEstimate{CompanyID: companyID}}, &invoiceStub{}, &collectorStub{})
	result, err = svc.GetBillingEstimate(context.Background(), companyID, month)
	require.NoError(t, err)
	assert.Equal(t, KindEstimate, result.Kind)
	require.NotNil(t, result.Estimate)
}

func TestGenerateInvoiceManually_Kinds(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	companyID := node.Generate()
	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := &invoicedomain.Invoice{ID: node.Generate()}

	tests := []struct {
		name    string
		outcome *invoicedomain.GenerateOutcome
		want    ResultKind
	}{
		{"not billable", nil, KindNotBillable},
		{"created", &invoicedomain.GenerateOutcome{Invoice: inv}, KindCreated},
		{"already exists", &invoicedomain.GenerateOutcome{Invoice: inv, AlreadyExists: true}, KindAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(&ratingStub{}, &invoiceStub{outcome: tt.outcome}, &collectorStub{})
			result, err := svc.GenerateInvoiceManually(context.Background(), companyID, month, "admin")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Kind)
		})
	}
}

func TestGetBillingHistory(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	companyID := node.Generate()
	invoices := []invoicedomain.Invoice{
		{ID: node.Generate(), Status: invoicedomain.InvoiceStatusPaid, Currency: "USD"},
		{ID: node.Generate(), Status: invoicedomain.InvoiceStatusDraft, Currency: "USD"},
	}

	svc := newService(&ratingStub{}, &invoiceStub{listed: invoices}, &collectorStub{})
	history, err := svc.GetBillingHistory(context.Background(), companyID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, invoices[0].ID, history[0].ID)
}

func TestGetVMUsageHistory(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	vmID := node.Generate()
	rows := []snapshotdomain.ResourceSnapshot{
		{VMID: vmID, CPUCores: 4},
		{VMID: vmID, CPUCores: 8},
	}

	svc := New(Params{
		Log:       zap.NewNop(),
		Rating:    &ratingStub{},
		Invoices:  &invoiceStub{},
		Collector: &collectorStub{},
		Snapshots: &snapshotRepoStub{rows: rows},
	})
	got, err := svc.GetVMUsageHistory(context.Background(), vmID,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(8), got[1].CPUCores)
}

func TestTriggers(t *testing.T) {
	collector := &collectorStub{result: snapshotdomain.CollectResult{Created: 3, Skipped: 1}}
	invoices := &invoiceStub{batch: invoicedomain.BatchResult{Companies: 2, Created: 2}}
	svc := newService(&ratingStub{}, invoices, collector)

	collectResult, err := svc.TriggerDailySnapshots(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, collectResult.Created)

	batchResult, err := svc.TriggerMonthlyInvoices(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, batchResult.Created)
}
