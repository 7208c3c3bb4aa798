package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/repository"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/metrics"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/shared/fx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService is the order lifecycle engine. Every mutation goes through
// IsOrderActionable with lock state freshly read from the settings store.
type OrderService struct {
	orders    *repository.OrderRepository
	catalog   *CatalogService
	locks     *LockRegistry
	inventory *InventoryService
	rates     *fx.Client
	notifier  *Notifier
	adminFee  float64
	logger    *zap.Logger
}

func NewOrderService(
	orders *repository.OrderRepository,
	catalog *CatalogService,
	locks *LockRegistry,
	inventory *InventoryService,
	rates *fx.Client,
	notifier *Notifier,
	adminFeePHP float64,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		catalog:   catalog,
		locks:     locks,
		inventory: inventory,
		rates:     rates,
		notifier:  notifier,
		adminFee:  adminFeePHP,
		logger:    logger,
	}
}

// OrderItemRequest is one requested line before pricing.
type OrderItemRequest struct {
	ProductCode string `json:"product_code" binding:"required"`
	OrderType   string `json:"order_type"`
	Quantity    int    `json:"qty" binding:"required"`
}

// SubmitOrderRequest creates a new order in a tab.
type SubmitOrderRequest struct {
	CustomerName string             `json:"full_name" binding:"required"`
	Email        string             `json:"email"`
	Telegram     string             `json:"telegram"`
	TabName      string             `json:"tab_name"`
	Items        []OrderItemRequest `json:"items" binding:"required,dive"`
}

func newOrderID() string {
	suffix := strings.ToUpper(uuid.New().String()[:6])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102150405"), suffix)
}

// consolidate merges duplicate (code, order type) request lines by summing
// quantities, and validates quantities and defaults the order type.
func consolidate(items []OrderItemRequest) ([]OrderItemRequest, error) {
	index := make(map[string]int)
	var out []OrderItemRequest
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, Validation("quantity for product %s must be positive", item.ProductCode)
		}
		if item.OrderType == "" {
			item.OrderType = entity.OrderTypeVial
		}
		key := item.ProductCode + "/" + item.OrderType
		if i, ok := index[key]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil, Validation("order has no items")
	}
	return out, nil
}

// SubmitOrder prices and persists a new order. The whole submission is
// atomic: any unresolvable item, locked product or active lock rejects it
// without writing anything.
func (s *OrderService) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*entity.Order, error) {
	items, err := consolidate(req.Items)
	if err != nil {
		return nil, err
	}

	tabName := req.TabName
	if tabName == "" {
		tabName, err = s.locks.CurrentTab(ctx)
		if err != nil {
			return nil, Validation("no order batch is currently open")
		}
	}

	globalLock, tabLock := s.locks.EffectiveLocks(ctx, tabName)
	draft := entity.Order{TabName: tabName}
	if d := IsOrderActionable(&draft, ActionSubmit, tabLock, globalLock); !d.Allowed {
		metrics.OrderDenials.WithLabelValues(string(ActionSubmit), d.Reason).Inc()
		return nil, Denied(d.Message)
	}

	supplier, err := s.locks.SupplierAssignment(ctx, tabName)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.inventory.Stats(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	rate := s.rates.USDToPHP(ctx)
	now := time.Now()
	order := &entity.Order{
		ID:            newOrderID(),
		TabName:       tabName,
		CustomerName:  req.CustomerName,
		Email:         strings.TrimSpace(req.Email),
		Telegram:      strings.TrimSpace(req.Telegram),
		Status:        entity.OrderStatusPending,
		PaymentStatus: entity.PaymentStatusUnpaid,
		ExchangeRate:  rate,
		AdminFeePHP:   s.adminFee,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, item := range items {
		if inv, ok := stats[item.ProductCode]; ok && inv.IsLocked {
			return nil, Denied(fmt.Sprintf("Product %s is currently locked and cannot be ordered", item.ProductCode))
		}

		product, err := snapshot.Resolve(item.ProductCode, supplier, item.OrderType)
		if err != nil {
			return nil, err
		}
		unitPrice, err := product.UnitPrice(item.OrderType)
		if err != nil {
			return nil, Validation("%v", err)
		}

		lineUSD := unitPrice * float64(item.Quantity)
		order.Items = append(order.Items, entity.OrderItem{
			ID:           uuid.New().String()[:32],
			OrderID:      order.ID,
			ProductCode:  product.Code,
			ProductName:  product.Name,
			Supplier:     product.Supplier,
			OrderType:    item.OrderType,
			Quantity:     item.Quantity,
			UnitPriceUSD: unitPrice,
			LineTotalUSD: lineUSD,
			ExchangeRate: rate,
			LineTotalPHP: lineUSD * rate,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		order.SubtotalUSD += lineUSD
	}

	order.GrandTotalPHP = order.SubtotalUSD*rate + s.adminFee

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, ExternalUnavailable("failed to save order", err)
	}

	metrics.OrdersSubmitted.Inc()
	s.notifier.OrderSubmitted(order)
	s.logger.Info("order submitted",
		zap.String("order_id", order.ID),
		zap.String("tab", tabName),
		zap.String("supplier", supplier),
		zap.Int("items", len(order.Items)),
		zap.Float64("grand_total_php", order.GrandTotalPHP),
	)
	return order, nil
}

// Get loads one order with its items.
func (s *OrderService) Get(ctx context.Context, orderID string) (*entity.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("order %s not found", orderID)
		}
		return nil, ExternalUnavailable("order book is unavailable", err)
	}
	return order, nil
}

// List returns the order book, newest first.
func (s *OrderService) List(ctx context.Context, tabName string, page, pageSize int) ([]entity.Order, int64, error) {
	orders, total, err := s.orders.FindAll(ctx, tabName, page, pageSize)
	if err != nil {
		return nil, 0, ExternalUnavailable("order book is unavailable", err)
	}
	return orders, total, nil
}

// Lookup finds a customer's orders by email or telegram handle.
func (s *OrderService) Lookup(ctx context.Context, email, telegram string) ([]entity.Order, error) {
	if email == "" && telegram == "" {
		return nil, Validation("email or telegram is required")
	}
	orders, err := s.orders.FindByContact(ctx, email, telegram)
	if err != nil {
		return nil, ExternalUnavailable("order book is unavailable", err)
	}
	return orders, nil
}

// Search matches orders on name, email or order ID.
func (s *OrderService) Search(ctx context.Context, q string) ([]entity.Order, error) {
	if strings.TrimSpace(q) == "" {
		return nil, Validation("search query is required")
	}
	orders, err := s.orders.Search(ctx, q)
	if err != nil {
		return nil, ExternalUnavailable("order book is unavailable", err)
	}
	return orders, nil
}

// AddItems appends items to an existing order. A new line that matches an
// existing (code, order type) pair only bumps that line's quantity: the
// line's recorded supplier and unit price are preserved verbatim, never
// re-resolved, so updating one item can never flip the supplier of another.
func (s *OrderService) AddItems(ctx context.Context, orderID string, newItems []OrderItemRequest) (*entity.Order, error) {
	items, err := consolidate(newItems)
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	globalLock, tabLock := s.locks.EffectiveLocks(ctx, order.TabName)
	if d := IsOrderActionable(order, ActionUpdate, tabLock, globalLock); !d.Allowed {
		metrics.OrderDenials.WithLabelValues(string(ActionUpdate), d.Reason).Inc()
		return nil, Denied(d.Message)
	}

	// Appends may reallocate order.Items, so track lines by index and
	// resolve the pointer at use time.
	existing := make(map[string]int, len(order.Items))
	for i := range order.Items {
		existing[order.Items[i].ProductCode+"/"+order.Items[i].OrderType] = i
	}

	var snapshot *Snapshot
	var supplier string
	now := time.Now()

	for _, item := range items {
		if i, ok := existing[item.ProductCode+"/"+item.OrderType]; ok {
			line := &order.Items[i]
			line.Quantity += item.Quantity
			line.LineTotalUSD = line.UnitPriceUSD * float64(line.Quantity)
			line.LineTotalPHP = line.LineTotalUSD * line.ExchangeRate
			line.UpdatedAt = now
			continue
		}

		// Lazily resolve only when a genuinely new line shows up.
		if snapshot == nil {
			if supplier, err = s.locks.SupplierAssignment(ctx, order.TabName); err != nil {
				return nil, err
			}
			if snapshot, err = s.catalog.Snapshot(ctx); err != nil {
				return nil, err
			}
		}

		product, err := snapshot.Resolve(item.ProductCode, supplier, item.OrderType)
		if err != nil {
			return nil, err
		}
		unitPrice, err := product.UnitPrice(item.OrderType)
		if err != nil {
			return nil, Validation("%v", err)
		}

		lineUSD := unitPrice * float64(item.Quantity)
		line := entity.OrderItem{
			ID:           uuid.New().String()[:32],
			OrderID:      order.ID,
			ProductCode:  product.Code,
			ProductName:  product.Name,
			Supplier:     product.Supplier,
			OrderType:    item.OrderType,
			Quantity:     item.Quantity,
			UnitPriceUSD: unitPrice,
			LineTotalUSD: lineUSD,
			ExchangeRate: order.ExchangeRate,
			LineTotalPHP: lineUSD * order.ExchangeRate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		order.Items = append(order.Items, line)
		existing[line.ProductCode+"/"+line.OrderType] = len(order.Items) - 1
	}

	s.retotal(order)
	if err := s.orders.SaveWithItems(ctx, order); err != nil {
		return nil, ExternalUnavailable("failed to save order", err)
	}
	return order, nil
}

// UpdateItemQuantity changes one line's quantity. Totals are recomputed from
// the line's recorded unit price and exchange rate; the supplier is untouched.
func (s *OrderService) UpdateItemQuantity(ctx context.Context, orderID, productCode, orderType string, quantity int) (*entity.Order, error) {
	if quantity <= 0 {
		return nil, Validation("quantity must be positive")
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	globalLock, tabLock := s.locks.EffectiveLocks(ctx, order.TabName)
	if d := IsOrderActionable(order, ActionUpdate, tabLock, globalLock); !d.Allowed {
		metrics.OrderDenials.WithLabelValues(string(ActionUpdate), d.Reason).Inc()
		return nil, Denied(d.Message)
	}

	var line *entity.OrderItem
	for i := range order.Items {
		if order.Items[i].ProductCode == productCode && order.Items[i].OrderType == orderType {
			line = &order.Items[i]
			break
		}
	}
	if line == nil {
		return nil, NotFound("order %s has no %s %s line", orderID, productCode, orderType)
	}

	line.Quantity = quantity
	line.LineTotalUSD = line.UnitPriceUSD * float64(quantity)
	line.LineTotalPHP = line.LineTotalUSD * line.ExchangeRate
	line.UpdatedAt = time.Now()

	s.retotal(order)
	if err := s.orders.SaveWithItems(ctx, order); err != nil {
		return nil, ExternalUnavailable("failed to save order", err)
	}
	return order, nil
}

// retotal recomputes the order header from its lines. The admin fee is added
// once per order regardless of line count.
func (s *OrderService) retotal(order *entity.Order) {
	order.SubtotalUSD = 0
	var subtotalPHP float64
	for i := range order.Items {
		order.SubtotalUSD += order.Items[i].LineTotalUSD
		subtotalPHP += order.Items[i].LineTotalPHP
	}
	order.GrandTotalPHP = subtotalPHP + order.AdminFeePHP
	order.UpdatedAt = time.Now()
}

// CancelOrder soft-cancels: the status flips to Cancelled and the line items
// stay in the book untouched. Inventory statistics exclude cancelled orders,
// so the freed slots reappear without destroying the audit trail.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) error {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}

	globalLock, tabLock := s.locks.EffectiveLocks(ctx, order.TabName)
	if d := IsOrderActionable(order, ActionCancel, tabLock, globalLock); !d.Allowed {
		metrics.OrderDenials.WithLabelValues(string(ActionCancel), d.Reason).Inc()
		return Denied(d.Message)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, map[string]interface{}{
		"status": entity.OrderStatusCancelled,
	}); err != nil {
		return ExternalUnavailable("failed to cancel order", err)
	}

	metrics.OrdersCancelled.Inc()
	s.logger.Info("order cancelled", zap.String("order_id", orderID))
	return nil
}

// SubmitPayment attaches uploaded payment proof and moves the order to
// WaitingConfirmation. Payment is exempt from every lock; only an
// already-paid order rejects it.
func (s *OrderService) SubmitPayment(ctx context.Context, orderID, proofRef string) (*entity.Order, error) {
	if proofRef == "" {
		return nil, Validation("payment proof is required")
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if d := IsOrderActionable(order, ActionPay, entity.TabLock{}, entity.FormLock{}); !d.Allowed {
		metrics.OrderDenials.WithLabelValues(string(ActionPay), d.Reason).Inc()
		return nil, Denied(d.Message)
	}

	now := time.Now()
	if err := s.orders.UpdateStatus(ctx, orderID, map[string]interface{}{
		"payment_status":    entity.PaymentStatusWaitingConfirmation,
		"payment_proof_uri": proofRef,
		"payment_at":        now,
	}); err != nil {
		return nil, ExternalUnavailable("failed to record payment", err)
	}

	order.PaymentStatus = entity.PaymentStatusWaitingConfirmation
	order.PaymentProofURI = proofRef
	order.PaymentAt = &now

	s.notifier.PaymentUploaded(order)
	s.logger.Info("payment proof uploaded",
		zap.String("order_id", orderID), zap.String("proof", proofRef))
	return order, nil
}

// ConfirmPayment is the admin side of the two-step payment flow.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID string) error {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.PaymentStatus == entity.PaymentStatusPaid {
		return Denied(msgOrderPaid)
	}

	now := time.Now()
	if err := s.orders.UpdateStatus(ctx, orderID, map[string]interface{}{
		"payment_status": entity.PaymentStatusPaid,
		"payment_at":     now,
	}); err != nil {
		return ExternalUnavailable("failed to confirm payment", err)
	}

	metrics.PaymentsConfirmed.Inc()
	s.logger.Info("payment confirmed", zap.String("order_id", orderID))
	return nil
}

// MarkUnpaid reverts a mistaken confirmation. The proof reference is kept.
func (s *OrderService) MarkUnpaid(ctx context.Context, orderID string) error {
	if _, err := s.Get(ctx, orderID); err != nil {
		return err
	}
	if err := s.orders.UpdateStatus(ctx, orderID, map[string]interface{}{
		"payment_status": entity.PaymentStatusUnpaid,
	}); err != nil {
		return ExternalUnavailable("failed to update payment status", err)
	}
	return nil
}

// SetAdminLock locks or unlocks one order. Cancelled orders stay cancelled.
func (s *OrderService) SetAdminLock(ctx context.Context, orderID string, locked bool) error {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == entity.OrderStatusCancelled {
		return Denied(msgOrderCancelled)
	}

	status := entity.OrderStatusPending
	if locked {
		status = entity.OrderStatusLocked
	}
	if err := s.orders.UpdateStatus(ctx, orderID, map[string]interface{}{
		"admin_locked": locked,
		"status":       status,
	}); err != nil {
		return ExternalUnavailable("failed to update order lock", err)
	}
	return nil
}
