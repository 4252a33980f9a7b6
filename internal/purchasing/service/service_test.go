package service

import (
	"context"
	"testing"
	"time"

	"github.com/bitfantasy/procure/internal/purchasing/repository"
	"github.com/bitfantasy/procure/internal/purchasing/testutil"
	"github.com/bitfantasy/procure/internal/shared/feishu"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var buyer = Operator{ID: "test-user-001", Name: "Test Buyer"}

type recordedEvent struct {
	eventType string
	payload   interface{}
}

// recordingPublisher 记录推送的事件
type recordingPublisher struct {
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType string, payload interface{}) {
	p.events = append(p.events, recordedEvent{eventType, payload})
}

func (p *recordingPublisher) count(eventType string) int {
	n := 0
	for _, e := range p.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

// fakeCardSender 把收到的卡片写入channel
type fakeCardSender struct {
	cards chan feishu.InteractiveCard
}

func (f *fakeCardSender) SendCard(_ context.Context, _ string, card feishu.InteractiveCard) error {
	f.cards <- card
	return nil
}

type serviceEnv struct {
	db        *gorm.DB
	svc       *Services
	publisher *recordingPublisher
	now       time.Time
}

func setupServices(t *testing.T, deps Dependencies, opts Options) *serviceEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos, err := repository.NewRepositories(db)
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}

	env := &serviceEnv{
		db:        db,
		publisher: &recordingPublisher{},
		now:       time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC),
	}
	deps.Logger = zap.NewNop()
	deps.Publisher = env.publisher
	if opts.DefaultTaxRate.IsZero() {
		opts.DefaultTaxRate = decimal.NewFromInt(18)
	}
	opts.Auth.Secret = testutil.JWTSecret
	env.svc = NewServices(repos, deps, opts)
	env.svc.SetClock(func() time.Time { return env.now })

	testutil.SeedVendor(t, db, "v_acme", "Acme Supply")
	testutil.SeedProduct(t, db, "p_bolt", "Bolt", "100", "18")
	testutil.SeedProduct(t, db, "p_nut", "Nut", "2.5", "12")
	return env
}

func (e *serviceEnv) createOrder(t *testing.T, items ...OrderItemRequest) string {
	t.Helper()
	po, err := e.svc.Order.Create(context.Background(), &OrderRequest{
		VendorID:     "v_acme",
		DeliveryDate: "2026-06-01",
		PaymentTerms: "Net 60",
		Items:        items,
	}, buyer)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return po.ID
}

func qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}
