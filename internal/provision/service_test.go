package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/vira-vpn/internal/domain/orders"
	"github.com/Spok95/vira-vpn/internal/domain/plans"
	"github.com/Spok95/vira-vpn/internal/domain/subscriptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	byID map[int64]*orders.Order
}

func (f *fakeOrders) GetByID(_ context.Context, id int64) (*orders.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return o, nil
}

type fakePlans struct {
	byCode map[string]*plans.Plan
}

func (f *fakePlans) GetActiveByCode(_ context.Context, code string) (*plans.Plan, error) {
	p, ok := f.byCode[code]
	if !ok {
		return nil, plans.ErrNotFound
	}
	return p, nil
}

type fakeSubs struct {
	created []*subscriptions.Subscription
	nextID  int64
}

func (f *fakeSubs) Create(_ context.Context, s *subscriptions.Subscription) error {
	f.nextID++
	s.ID = f.nextID
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSubs) GetActiveTrial(_ context.Context, userID int64) (*subscriptions.Subscription, error) {
	for _, s := range f.created {
		if s.UserID == userID && s.SourcePlan == subscriptions.SourcePlanTrial &&
			s.Status == subscriptions.StatusActive {
			return s, nil
		}
	}
	return nil, subscriptions.ErrNotFound
}

// fakeAccounts имитирует идемпотентный AddAccount менеджера.
type fakeAccounts struct {
	secrets map[string]string
	failOn  string
	calls   int
}

func (f *fakeAccounts) AddAccount(_ context.Context, identity string) (string, string, error) {
	f.calls++
	if identity == f.failOn {
		return "", "", errors.New("engine unavailable")
	}
	if f.secrets == nil {
		f.secrets = map[string]string{}
	}
	secret, ok := f.secrets[identity]
	if !ok {
		secret = fmt.Sprintf("secret-%d", len(f.secrets)+1)
		f.secrets[identity] = secret
	}
	link := fmt.Sprintf("vless://%s@vpn.example.com:8081?type=ws&path=/ws8081&encryption=none&security=none#%s",
		secret, identity)
	return secret, link, nil
}

func testService(o *fakeOrders, p *fakePlans, s *fakeSubs, a *fakeAccounts) *Service {
	svc := NewService(o, p, s, a,
		TrialConf{QuotaMB: 300, Hours: 24, Devices: 1},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func paidOrder() *fakeOrders {
	return &fakeOrders{byID: map[int64]*orders.Order{
		42: {ID: 42, UserID: 7, PlanCode: "plan_eco_plus", Status: orders.StatusPaid},
	}}
}

func ecoPlus() *fakePlans {
	return &fakePlans{byCode: map[string]*plans.Plan{
		"plan_eco_plus": {ID: 3, Code: "plan_eco_plus", Title: "Eco+", GB: 50, Days: 30, Devices: 2, PriceToman: 99000, Active: true},
	}}
}

func TestProvision(t *testing.T) {
	subs := &fakeSubs{}
	accounts := &fakeAccounts{}
	svc := testService(paidOrder(), ecoPlus(), subs, accounts)

	sub, links, err := svc.Provision(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, uint64(50)<<30, sub.QuotaBytes)
	assert.Equal(t, 2, sub.DeviceCount)
	assert.Equal(t, subscriptions.StatusActive, sub.Status)
	assert.Equal(t, sub.StartAt.AddDate(0, 0, 30), sub.EndAt)
	require.NotNil(t, sub.OrderID)
	assert.Equal(t, int64(42), *sub.OrderID)

	require.Len(t, sub.Accounts, 2)
	assert.Equal(t, "u7-o42-1@bot", sub.Accounts[0].Identity)
	assert.Equal(t, "u7-o42-2@bot", sub.Accounts[1].Identity)
	assert.NotEqual(t, sub.Accounts[0].Secret, sub.Accounts[1].Secret)

	require.Len(t, links, 2)
	for i, link := range links {
		assert.True(t, strings.HasPrefix(link, "vless://"+sub.Accounts[i].Secret+"@"))
	}
	require.Len(t, subs.created, 1)
}

func TestProvision_OrderNotPaid(t *testing.T) {
	ordersRepo := paidOrder()
	ordersRepo.byID[42].Status = orders.StatusPending
	subs := &fakeSubs{}
	svc := testService(ordersRepo, ecoPlus(), subs, &fakeAccounts{})

	_, _, err := svc.Provision(context.Background(), 42)
	assert.ErrorIs(t, err, ErrOrderNotPaid)
	assert.Empty(t, subs.created)
}

func TestProvision_PlanGone(t *testing.T) {
	svc := testService(paidOrder(), &fakePlans{byCode: map[string]*plans.Plan{}}, &fakeSubs{}, &fakeAccounts{})
	_, _, err := svc.Provision(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPlanUnavailable)
}

func TestProvision_EngineFailureKeepsLedgerClean(t *testing.T) {
	subs := &fakeSubs{}
	accounts := &fakeAccounts{failOn: "u7-o42-2@bot"}
	svc := testService(paidOrder(), ecoPlus(), subs, accounts)

	_, _, err := svc.Provision(context.Background(), 42)
	require.Error(t, err)
	// подписка не записана — ретрай после починки движка создаст её заново,
	// переиспользовав уже выданную первую учётку
	assert.Empty(t, subs.created)
}

func TestTrial_IssuedOnce(t *testing.T) {
	subs := &fakeSubs{}
	accounts := &fakeAccounts{}
	svc := testService(&fakeOrders{}, &fakePlans{}, subs, accounts)
	ctx := context.Background()

	sub1, links1, err := svc.Trial(ctx, 7, 100500)
	require.NoError(t, err)
	assert.Equal(t, uint64(300)<<20, sub1.QuotaBytes)
	assert.Equal(t, subscriptions.SourcePlanTrial, sub1.SourcePlan)
	assert.Nil(t, sub1.OrderID)
	assert.Equal(t, sub1.StartAt.Add(24*time.Hour), sub1.EndAt)
	require.Len(t, sub1.Accounts, 1)
	assert.Equal(t, "trial-100500@bot", sub1.Accounts[0].Identity)

	// повторный запрос возвращает ту же подписку и те же ссылки
	sub2, links2, err := svc.Trial(ctx, 7, 100500)
	require.NoError(t, err)
	assert.Equal(t, sub1.ID, sub2.ID)
	assert.Equal(t, links1, links2)
	require.Len(t, subs.created, 1)
}
