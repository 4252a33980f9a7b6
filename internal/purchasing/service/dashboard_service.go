package service

import (
	"context"

	"github.com/bitfantasy/procure/internal/purchasing/entity"
	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/shopspring/decimal"
)

const (
	recentOrderLimit = 5
	topVendorLimit   = 5
)

// DashboardService 看板服务
type DashboardService struct {
	report *repository.ReportRepository
	poRepo *repository.PORepository
}

func NewDashboardService(repos *repository.Repositories) *DashboardService {
	return &DashboardService{report: repos.Report, poRepo: repos.PO}
}

// Dashboard 看板数据
type Dashboard struct {
	TotalOrders         int64                    `json:"total_orders"`
	DraftOrders         int64                    `json:"draft_orders"`
	SentOrders          int64                    `json:"sent_orders"`
	ReceivedOrders      int64                    `json:"received_orders"`
	CancelledOrders     int64                    `json:"cancelled_orders"`
	TotalVendors        int64                    `json:"total_vendors"`
	TotalProducts       int64                    `json:"total_products"`
	PendingReceipt      int64                    `json:"pending_receipt"`
	MaterialReceived    int64                    `json:"material_received"`
	UnreadNotifications int64                    `json:"unread_notifications"`
	TotalSpend          decimal.Decimal          `json:"total_spend"`
	StatusBreakdown     []repository.StatusCount `json:"status_breakdown"`
	TopVendors          []repository.VendorSpend `json:"top_vendors"`
	RecentOrders        []entity.PurchaseOrder   `json:"recent_orders"`
}

// Get 汇总看板数据
func (s *DashboardService) Get(ctx context.Context) (*Dashboard, error) {
	counts, err := s.report.EntityCounts(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := s.report.StatusBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	receipts, err := s.report.ReceiptSummary(ctx)
	if err != nil {
		return nil, err
	}
	vendors, err := s.report.TopVendors(ctx, topVendorLimit)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.poRepo.FindAll(ctx, 1, recentOrderLimit, nil)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		TotalOrders:         counts.Orders,
		TotalVendors:        counts.Vendors,
		TotalProducts:       counts.Products,
		PendingReceipt:      receipts.Pending,
		MaterialReceived:    receipts.Received,
		UnreadNotifications: receipts.UnreadNotification,
		TotalSpend:          decimal.Zero,
		StatusBreakdown:     statuses,
		TopVendors:          vendors,
		RecentOrders:        recent,
	}
	for _, sc := range statuses {
		switch sc.Status {
		case entity.POStatusDraft:
			d.DraftOrders = sc.Count
		case entity.POStatusSent:
			d.SentOrders = sc.Count
		case entity.POStatusReceived:
			d.ReceivedOrders = sc.Count
		case entity.POStatusCancelled:
			d.CancelledOrders = sc.Count
			continue
		}
		d.TotalSpend = d.TotalSpend.Add(sc.Amount)
	}
	return d, nil
}
