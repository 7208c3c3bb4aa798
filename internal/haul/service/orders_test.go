package service

import (
	"context"
	"testing"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/repository"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/testutil"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/shared/fx"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/shared/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConsolidate(t *testing.T) {
	t.Run("duplicate lines merge", func(t *testing.T) {
		items, err := consolidate([]OrderItemRequest{
			{ProductCode: "TR30", OrderType: "Vial", Quantity: 2},
			{ProductCode: "TR30", OrderType: "Vial", Quantity: 1},
			{ProductCode: "TR30", OrderType: "Kit", Quantity: 1},
		})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, 3, items[0].Quantity)
		assert.Equal(t, "Kit", items[1].OrderType)
	})

	t.Run("order type defaults to vial", func(t *testing.T) {
		items, err := consolidate([]OrderItemRequest{{ProductCode: "TR30", Quantity: 1}})
		require.NoError(t, err)
		assert.Equal(t, entity.OrderTypeVial, items[0].OrderType)
	})

	t.Run("non-positive quantity rejected", func(t *testing.T) {
		_, err := consolidate([]OrderItemRequest{{ProductCode: "TR30", Quantity: 0}})
		require.Error(t, err)
		assert.True(t, IsKind(err, KindValidation))
	})

	t.Run("empty request rejected", func(t *testing.T) {
		_, err := consolidate(nil)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindValidation))
	})
}

func newTestOrderService(t *testing.T) (*OrderService, *LockRegistry, *repository.Repositories) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	logger := zap.NewNop()

	catalog := NewCatalogService(repos.Product, nil, 0, logger)
	locks := NewLockRegistry(repos.Settings, logger)
	inventory := NewInventoryService(repos.Order, repos.Product, 10, 100)
	rates := fx.NewClient("", 59.20, 0, nil, logger)
	notifier := NewNotifier(telegram.NewClient("", ""), logger)
	orders := NewOrderService(repos.Order, catalog, locks, inventory, rates, notifier, 300, logger)
	return orders, locks, repos
}

func seedTwoSupplierCatalog(t *testing.T, repos *repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	products := []entity.Product{
		{ID: "p1", Code: "TR30", Supplier: "YIWU", Name: "Tirzepatide 30mg", KitPriceUSD: 100, VialPriceUSD: 10, VialsPerKit: 10},
		{ID: "p2", Code: "TR30", Supplier: "WWB", Name: "Tirzepatide 30mg", KitPriceUSD: 120, VialPriceUSD: 12, VialsPerKit: 10},
		{ID: "p3", Code: "RT10", Supplier: "YIWU", Name: "Retatrutide 10mg", KitPriceUSD: 80, VialPriceUSD: 8, VialsPerKit: 10},
	}
	for i := range products {
		require.NoError(t, repos.Product.Upsert(ctx, &products[i]))
	}
}

func openTab(t *testing.T, locks *LockRegistry, tab, supplier string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, locks.AssignSupplier(ctx, tab, supplier))
	require.NoError(t, locks.SetCurrentTab(ctx, tab))
}

func TestSubmitOrder_PricesAgainstAssignedSupplier(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	order, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Email:        "maria@example.com",
		Items: []OrderItemRequest{
			{ProductCode: "TR30", OrderType: "Vial", Quantity: 2},
			{ProductCode: "TR30", OrderType: "Vial", Quantity: 1},
		},
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "YIWU", order.Items[0].Supplier)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 10.0, order.Items[0].UnitPriceUSD)
	assert.InDelta(t, 30.0, order.SubtotalUSD, 0.001)
	assert.InDelta(t, 30.0*59.20+300, order.GrandTotalPHP, 0.001)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.Equal(t, entity.PaymentStatusUnpaid, order.PaymentStatus)

	// Same item priced through a WWB tab costs more.
	openTab(t, locks, "Haul 2", "WWB")
	order2, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Ana Cruz",
		Items:        []OrderItemRequest{{ProductCode: "TR30", OrderType: "Vial", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "WWB", order2.Items[0].Supplier)
	assert.Equal(t, 12.0, order2.Items[0].UnitPriceUSD)
}

func TestSubmitOrder_AtomicRejection(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	_, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Items: []OrderItemRequest{
			{ProductCode: "TR30", OrderType: "Vial", Quantity: 2},
			{ProductCode: "NOPE", OrderType: "Vial", Quantity: 1},
		},
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))

	// Nothing was written.
	found, _, err := orders.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSubmitOrder_GlobalLockBlocks(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	_, err := locks.SetGlobalLock(ctx, true, "Back soon")
	require.NoError(t, err)

	_, err = orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Items:        []OrderItemRequest{{ProductCode: "TR30", OrderType: "Vial", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDenied))
	assert.Contains(t, err.Error(), "Back soon")
}

func TestAddItems_PreservesRecordedSupplier(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	order, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Items:        []OrderItemRequest{{ProductCode: "TR30", OrderType: "Vial", Quantity: 2}},
	})
	require.NoError(t, err)

	// The tab is later reassigned to WWB; the existing line must keep the
	// YIWU price it was sold at.
	require.NoError(t, locks.AssignSupplier(ctx, "Haul 1", "WWB"))

	updated, err := orders.AddItems(ctx, order.ID, []OrderItemRequest{
		{ProductCode: "TR30", OrderType: "Vial", Quantity: 3},
		{ProductCode: "RT10", OrderType: "Vial", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)

	var tr30, rt10 *entity.OrderItem
	for i := range updated.Items {
		switch updated.Items[i].ProductCode {
		case "TR30":
			tr30 = &updated.Items[i]
		case "RT10":
			rt10 = &updated.Items[i]
		}
	}
	require.NotNil(t, tr30)
	require.NotNil(t, rt10)

	assert.Equal(t, 5, tr30.Quantity)
	assert.Equal(t, "YIWU", tr30.Supplier)
	assert.Equal(t, 10.0, tr30.UnitPriceUSD)

	// The new line resolves through the single-supplier fallback.
	assert.Equal(t, "YIWU", rt10.Supplier)
	assert.Equal(t, 8.0, rt10.UnitPriceUSD)

	assert.InDelta(t, 58.0, updated.SubtotalUSD, 0.001)
	assert.InDelta(t, 58.0*59.20+300, updated.GrandTotalPHP, 0.001)
}

func TestAddItems_BumpsExistingLineAfterNewLine(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	order, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Items:        []OrderItemRequest{{ProductCode: "TR30", OrderType: "Vial", Quantity: 2}},
	})
	require.NoError(t, err)

	// The new line comes before the bump for the existing one, so the
	// append happens first. The bump must still land on the saved order.
	updated, err := orders.AddItems(ctx, order.ID, []OrderItemRequest{
		{ProductCode: "RT10", OrderType: "Vial", Quantity: 1},
		{ProductCode: "TR30", OrderType: "Vial", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)

	saved, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, saved.Items, 2)

	var tr30 *entity.OrderItem
	for i := range saved.Items {
		if saved.Items[i].ProductCode == "TR30" {
			tr30 = &saved.Items[i]
		}
	}
	require.NotNil(t, tr30)
	assert.Equal(t, 5, tr30.Quantity)
	assert.InDelta(t, 50.0, tr30.LineTotalUSD, 0.001)

	assert.InDelta(t, 58.0, saved.SubtotalUSD, 0.001)
	assert.InDelta(t, 58.0*59.20+300, saved.GrandTotalPHP, 0.001)
}

func TestUpdateItemQuantity(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	order, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Items:        []OrderItemRequest{{ProductCode: "TR30", OrderType: "Vial", Quantity: 2}},
	})
	require.NoError(t, err)

	updated, err := orders.UpdateItemQuantity(ctx, order.ID, "TR30", "Vial", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Items[0].Quantity)
	assert.InDelta(t, 70.0, updated.SubtotalUSD, 0.001)

	_, err = orders.UpdateItemQuantity(ctx, order.ID, "TR30", "Kit", 1)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))

	_, err = orders.UpdateItemQuantity(ctx, order.ID, "TR30", "Vial", 0)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

func TestCancelOrder(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	order, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Items:        []OrderItemRequest{{ProductCode: "TR30", OrderType: "Vial", Quantity: 2}},
	})
	require.NoError(t, err)

	// A closed form does not trap customers with unwanted orders.
	_, err = locks.SetGlobalLock(ctx, true, "")
	require.NoError(t, err)
	require.NoError(t, orders.CancelOrder(ctx, order.ID))

	got, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, got.Status)
	// Items survive cancellation for the audit trail.
	assert.Len(t, got.Items, 1)

	// Cancelled items no longer count toward inventory.
	items, err := repos.Order.ActiveItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	err = orders.CancelOrder(ctx, order.ID)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDenied))
}

func TestPaymentFlow(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	order, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Items:        []OrderItemRequest{{ProductCode: "TR30", OrderType: "Vial", Quantity: 2}},
	})
	require.NoError(t, err)

	paid, err := orders.SubmitPayment(ctx, order.ID, "payments/proof.png")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusWaitingConfirmation, paid.PaymentStatus)
	assert.Equal(t, "payments/proof.png", paid.PaymentProofURI)

	// Waiting confirmation freezes the order contents.
	_, err = orders.AddItems(ctx, order.ID, []OrderItemRequest{{ProductCode: "RT10", Quantity: 1}})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDenied))

	require.NoError(t, orders.ConfirmPayment(ctx, order.ID))
	got, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, got.PaymentStatus)

	// A paid order rejects another upload and another confirmation.
	_, err = orders.SubmitPayment(ctx, order.ID, "payments/proof2.png")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDenied))
	err = orders.ConfirmPayment(ctx, order.ID)
	require.Error(t, err)

	// Mark-unpaid reopens the payment cycle but keeps the proof reference.
	require.NoError(t, orders.MarkUnpaid(ctx, order.ID))
	got, err = orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusUnpaid, got.PaymentStatus)
	assert.Equal(t, "payments/proof.png", got.PaymentProofURI)
}

func TestSubmitOrder_LockedProduct(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	require.NoError(t, repos.Product.SetLock(ctx, "TR30", true, 100, "admin"))

	_, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Items:        []OrderItemRequest{{ProductCode: "TR30", OrderType: "Vial", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindDenied))
}

func TestLookupOrders(t *testing.T) {
	orders, locks, repos := newTestOrderService(t)
	seedTwoSupplierCatalog(t, repos)
	openTab(t, locks, "Haul 1", "YIWU")
	ctx := context.Background()

	_, err := orders.SubmitOrder(ctx, &SubmitOrderRequest{
		CustomerName: "Maria Santos",
		Email:        "Maria@Example.com",
		Telegram:     "@maria_s",
		Items:        []OrderItemRequest{{ProductCode: "TR30", OrderType: "Vial", Quantity: 1}},
	})
	require.NoError(t, err)

	// Case-insensitive email match.
	found, err := orders.Lookup(ctx, "maria@example.com", "")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// Telegram matches with or without the @ prefix.
	found, err = orders.Lookup(ctx, "", "maria_s")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = orders.Lookup(ctx, "", "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}
