package service

import (
	"context"
	"sync"
	"time"

	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.LevelError, Format: "text", Output: "stderr"})
}

// fakeOrderRepo is an in-memory stand-in for the Postgres order
// repository. It reproduces the conditional-update semantics the
// services depend on.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	items  map[string]*models.OrderItem

	createErr error
	deleted   []string

	grandTotalFinals map[string]float64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:           make(map[string]*models.Order),
		items:            make(map[string]*models.OrderItem),
		grandTotalFinals: make(map[string]float64),
	}
}

func (f *fakeOrderRepo) add(order *models.Order, items ...models.OrderItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
	for i := range items {
		item := items[i]
		f.items[item.ID] = &item
	}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.add(order, items...)
	return nil
}

func (f *fakeOrderRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if _, ok := f.orders[id]; !ok {
		return models.ErrOrderNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	copied := *order
	copied.Items = nil
	for _, item := range f.items {
		if item.OrderID == id {
			copied.Items = append(copied.Items, *item)
		}
	}
	return &copied, nil
}

func (f *fakeOrderRepo) ListByCustomer(ctx context.Context, customerID string) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Order
	for _, order := range f.orders {
		if order.CustomerID == customerID {
			copied := *order
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ItemsByOrder(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OrderItem
	for _, item := range f.items {
		if item.OrderID == orderID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) GetItemByID(ctx context.Context, itemID string) (*models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok {
		return nil, models.ErrOrderItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (f *fakeOrderRepo) FinalizeItemWeight(ctx context.Context, itemID string, finalWeightG int, lineTotalFinal float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok {
		return false, models.ErrOrderItemNotFound
	}
	if item.FinalWeightG != nil {
		return false, nil
	}
	w := finalWeightG
	total := lineTotalFinal
	item.FinalWeightG = &w
	item.LineTotalFinal = &total
	return true, nil
}

func (f *fakeOrderRepo) SetGrandTotalFinal(ctx context.Context, orderID string, total float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	t := total
	order.GrandTotalFinal = &t
	f.grandTotalFinals[orderID] = total
	return nil
}

func (f *fakeOrderRepo) ApplyPaymentOutcome(ctx context.Context, orderID string, paymentStatus models.PaymentStatus, status models.OrderStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	if order.PaymentStatus == paymentStatus && order.Status == status {
		return false, nil
	}
	order.PaymentStatus = paymentStatus
	order.Status = status
	return true, nil
}

type fakeProductRepo struct {
	products map[string]models.Product
	outletID string
}

func newFakeProductRepo(products ...models.Product) *fakeProductRepo {
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &fakeProductRepo{products: byID, outletID: "outlet-1"}
}

func (f *fakeProductRepo) GetByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	var out []models.Product
	seen := make(map[string]bool)
	for _, id := range ids {
		if p, ok := f.products[id]; ok && !seen[id] {
			out = append(out, p)
			seen[id] = true
		}
	}
	return out, nil
}

func (f *fakeProductRepo) FirstOutletForMerchant(ctx context.Context, merchantID string) (string, error) {
	return f.outletID, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (f *fakeAuditRepo) Append(ctx context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type paymentCallback struct {
	orderID     string
	provider    string
	status      models.PaymentStatus
	providerRef string
	capturedAt  *time.Time
}

type fakePaymentRepo struct {
	mu        sync.Mutex
	payments  []*models.Payment
	callbacks []paymentCallback
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakePaymentRepo) ApplyCallback(ctx context.Context, orderID, provider string, status models.PaymentStatus, providerRef string, capturedAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, paymentCallback{orderID, provider, status, providerRef, capturedAt})
	return true, nil
}

type fakeDeliveryRepo struct {
	mu      sync.Mutex
	created map[string]bool
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{created: make(map[string]bool)}
}

func (f *fakeDeliveryRepo) CreateIfAbsent(ctx context.Context, orderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created[orderID] {
		return false, nil
	}
	f.created[orderID] = true
	return true, nil
}

// fakeRewardRepo backs RewardService tests with a single wallet and
// order-keyed accrual idempotency.
type fakeRewardRepo struct {
	mu      sync.Mutex
	wallet  *models.RewardWallet
	accrued map[string]bool
	ledger  []models.RewardTransaction
}

func newFakeRewardRepo(balance int) *fakeRewardRepo {
	return &fakeRewardRepo{
		wallet:  &models.RewardWallet{ID: "wallet-1", CustomerID: "cust-1", BalancePoints: balance},
		accrued: make(map[string]bool),
	}
}

func (f *fakeRewardRepo) GetOrCreateWallet(ctx context.Context, customerID string) (*models.RewardWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *f.wallet
	return &copied, nil
}

func (f *fakeRewardRepo) GetWalletByID(ctx context.Context, walletID string) (*models.RewardWallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if walletID != f.wallet.ID {
		return nil, models.ErrWalletNotFound
	}
	copied := *f.wallet
	return &copied, nil
}

func (f *fakeRewardRepo) Redeem(ctx context.Context, walletID, orderID string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wallet.BalancePoints < points {
		return models.ErrInsufficientBalance
	}
	f.wallet.BalancePoints -= points
	f.ledger = append(f.ledger, models.RewardTransaction{
		WalletID: walletID,
		OrderID:  orderID,
		Type:     models.RewardRedeem,
		Points:   -points,
	})
	return nil
}

func (f *fakeRewardRepo) AccrueForOrder(ctx context.Context, walletID, orderID string, points int, memo string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accrued[orderID] {
		return false, nil
	}
	f.accrued[orderID] = true
	f.wallet.BalancePoints += points
	f.ledger = append(f.ledger, models.RewardTransaction{
		WalletID: walletID,
		OrderID:  orderID,
		Type:     models.RewardEarn,
		Points:   points,
		Memo:     memo,
	})
	return true, nil
}

// fakeRewards satisfies RewardServiceInterface for services that only
// delegate to it.
type fakeRewards struct {
	mu          sync.Mutex
	redeemCalls []int
	redeemErr   error
	accrueCalls []string
	accruePts   int
}

func (f *fakeRewards) GetWallet(ctx context.Context, customerID string) (*models.RewardWallet, error) {
	return &models.RewardWallet{ID: "wallet-1", CustomerID: customerID}, nil
}

func (f *fakeRewards) RedeemPoints(ctx context.Context, walletID, orderID string, points int) (float64, error) {
	return f.RedeemForCustomer(ctx, "", orderID, points)
}

func (f *fakeRewards) RedeemForCustomer(ctx context.Context, customerID, orderID string, points int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redeemCalls = append(f.redeemCalls, points)
	if f.redeemErr != nil {
		return 0, f.redeemErr
	}
	return float64(points) / 100, nil
}

func (f *fakeRewards) AccrueForOrder(ctx context.Context, customerID, orderID string, orderTotal float64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if contains(f.accrueCalls, orderID) {
		return 0, nil
	}
	f.accrueCalls = append(f.accrueCalls, orderID)
	return f.accruePts, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

type fakeNotifier struct {
	mu        sync.Mutex
	confirmed []string
}

func (f *fakeNotifier) OrderPaymentConfirmed(ctx context.Context, order *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, order.ID)
}
