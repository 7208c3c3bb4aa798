package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/repository"
	"go.uber.org/zap"
)

// Action is a mutation attempted against an order.
type Action string

const (
	ActionSubmit Action = "submit"
	ActionUpdate Action = "update"
	ActionCancel Action = "cancel"
	ActionPay    Action = "pay"
)

// Decision is the outcome of an actionability check.
type Decision struct {
	Allowed bool
	Reason  string
	Message string
}

var allowed = Decision{Allowed: true}

func denied(reason, message, fallback string) Decision {
	if message == "" {
		message = fallback
	}
	return Decision{Allowed: false, Reason: reason, Message: message}
}

// LockRegistry reads and writes the three lock scopes. Global and tab locks
// and supplier assignments live in the settings store and are re-read on
// every access; the per-order lock lives on the order row itself.
type LockRegistry struct {
	settings *repository.SettingsRepository
	logger   *zap.Logger
}

func NewLockRegistry(settings *repository.SettingsRepository, logger *zap.Logger) *LockRegistry {
	return &LockRegistry{settings: settings, logger: logger}
}

// GlobalLock reads the global form lock. A never-written lock is open.
func (r *LockRegistry) GlobalLock(ctx context.Context) (entity.FormLock, error) {
	var lock entity.FormLock
	err := r.settings.Get(ctx, repository.SettingGlobalLock, &lock)
	if errors.Is(err, repository.ErrNotFound) {
		return entity.FormLock{}, nil
	}
	return lock, err
}

// SetGlobalLock toggles the global form lock. Admin only.
func (r *LockRegistry) SetGlobalLock(ctx context.Context, isLocked bool, message string) (entity.FormLock, error) {
	lock := entity.FormLock{IsLocked: isLocked, Message: message, UpdatedAt: time.Now()}
	if err := r.settings.Set(ctx, repository.SettingGlobalLock, lock); err != nil {
		return entity.FormLock{}, err
	}
	return lock, nil
}

// TabLock reads one tab's lock. A never-written tab is open.
func (r *LockRegistry) TabLock(ctx context.Context, tabName string) (entity.TabLock, error) {
	var lock entity.TabLock
	err := r.settings.Get(ctx, repository.TabLockKey(tabName), &lock)
	if errors.Is(err, repository.ErrNotFound) {
		return entity.TabLock{TabName: tabName}, nil
	}
	return lock, err
}

// SetTabLock toggles one tab's lock. Admin only; the row is created on first
// write and never deleted.
func (r *LockRegistry) SetTabLock(ctx context.Context, tabName string, isLocked bool, message string) (entity.TabLock, error) {
	lock := entity.TabLock{TabName: tabName, IsLocked: isLocked, Message: message, UpdatedAt: time.Now()}
	if err := r.settings.Set(ctx, repository.TabLockKey(tabName), lock); err != nil {
		return entity.TabLock{}, err
	}
	return lock, nil
}

// TabLocks lists every tab lock ever written.
func (r *LockRegistry) TabLocks(ctx context.Context) ([]entity.TabLock, error) {
	raw, err := r.settings.ListPrefix(ctx, repository.TabLockKey(""))
	if err != nil {
		return nil, err
	}
	locks := make([]entity.TabLock, 0, len(raw))
	for key, value := range raw {
		var lock entity.TabLock
		if err := json.Unmarshal([]byte(value), &lock); err != nil {
			r.logger.Warn("skipping undecodable tab lock", zap.String("key", key), zap.Error(err))
			continue
		}
		locks = append(locks, lock)
	}
	sort.Slice(locks, func(i, j int) bool { return locks[i].TabName < locks[j].TabName })
	return locks, nil
}

// SupplierAssignment returns the supplier a tab is locked to.
func (r *LockRegistry) SupplierAssignment(ctx context.Context, tabName string) (string, error) {
	var supplier string
	err := r.settings.Get(ctx, repository.SupplierAssignmentKey(tabName), &supplier)
	if errors.Is(err, repository.ErrNotFound) {
		return "", NotFound("tab %s has no assigned supplier", tabName)
	}
	if err != nil {
		return "", err
	}
	return supplier, nil
}

// AssignSupplier locks a tab to one supplier. The caller must have validated
// the supplier against the catalog; the sentinel "all" is rejected here
// unconditionally because a tab priced against "all suppliers" is exactly the
// ambiguity the pricing resolver exists to prevent.
func (r *LockRegistry) AssignSupplier(ctx context.Context, tabName, supplier string) error {
	if supplier == "" || strings.EqualFold(supplier, "all") {
		return Validation("tab %s must be assigned to exactly one supplier", tabName)
	}
	return r.settings.Set(ctx, repository.SupplierAssignmentKey(tabName), supplier)
}

// CurrentTab returns the tab new submissions go into.
func (r *LockRegistry) CurrentTab(ctx context.Context) (string, error) {
	var tab string
	err := r.settings.Get(ctx, repository.SettingCurrentTab, &tab)
	if errors.Is(err, repository.ErrNotFound) {
		return "", NotFound("no current tab configured")
	}
	return tab, err
}

func (r *LockRegistry) SetCurrentTab(ctx context.Context, tabName string) error {
	if tabName == "" {
		return Validation("tab name is required")
	}
	return r.settings.Set(ctx, repository.SettingCurrentTab, tabName)
}

// EffectiveLocks reads both lock scopes for a tab, degrading to locked when
// the store is unreadable. Never degrades to open: a store outage must not
// let submissions through a lock the admin believes is active.
func (r *LockRegistry) EffectiveLocks(ctx context.Context, tabName string) (entity.FormLock, entity.TabLock) {
	global, err := r.GlobalLock(ctx)
	if err != nil {
		r.logger.Warn("global lock unreadable, treating as locked", zap.Error(err))
		global = entity.FormLock{IsLocked: true, Message: lockStateUnavailableMsg}
	}
	tab, err := r.TabLock(ctx, tabName)
	if err != nil {
		r.logger.Warn("tab lock unreadable, treating as locked",
			zap.String("tab", tabName), zap.Error(err))
		tab = entity.TabLock{TabName: tabName, IsLocked: true, Message: lockStateUnavailableMsg}
	}
	return global, tab
}

const lockStateUnavailableMsg = "Order form status is temporarily unavailable. Please try again in a moment."

// Generic denial messages, used when the active lock carries no message.
const (
	msgFormClosed     = "Orders are currently closed. Thank you for your patience!"
	msgTabClosed      = "This order batch is currently closed."
	msgOrderLocked    = "This order has been locked by an admin and can no longer be changed."
	msgOrderCancelled = "This order has been cancelled."
	msgOrderPaid      = "This order has already been paid."
	msgPaymentPending = "Payment for this order is awaiting confirmation and it can no longer be changed."
)

// IsOrderActionable is the single gate every mutation entry point goes
// through. It is pure over the values passed in; callers obtain the lock
// state via EffectiveLocks so store failures degrade safely.
//
// Pay is deliberately exempt from every lock: uploading payment proof does
// not alter order contents, and blocking it only strands customers mid-haul.
func IsOrderActionable(order *entity.Order, action Action, tabLock entity.TabLock, globalLock entity.FormLock) Decision {
	switch action {
	case ActionSubmit:
		if globalLock.IsLocked {
			return denied("global_lock", globalLock.Message, msgFormClosed)
		}
		if tabLock.IsLocked {
			return denied("tab_lock", tabLock.Message, msgTabClosed)
		}
		return allowed

	case ActionUpdate:
		if order.Status == entity.OrderStatusCancelled {
			return denied("cancelled", "", msgOrderCancelled)
		}
		if order.AdminLocked {
			return denied("order_lock", "", msgOrderLocked)
		}
		if order.PaymentStatus == entity.PaymentStatusPaid {
			return denied("paid", "", msgOrderPaid)
		}
		if order.PaymentStatus == entity.PaymentStatusWaitingConfirmation {
			return denied("payment_pending", "", msgPaymentPending)
		}
		if globalLock.IsLocked {
			return denied("global_lock", globalLock.Message, msgFormClosed)
		}
		if tabLock.IsLocked {
			return denied("tab_lock", tabLock.Message, msgTabClosed)
		}
		return allowed

	case ActionCancel:
		// The global form lock does not gate cancellation; only a tab lock
		// freezes it, during tab-specific admin control windows.
		if order.Status == entity.OrderStatusCancelled {
			return denied("cancelled", "", msgOrderCancelled)
		}
		if order.AdminLocked {
			return denied("order_lock", "", msgOrderLocked)
		}
		if order.PaymentStatus == entity.PaymentStatusPaid {
			return denied("paid", "", msgOrderPaid)
		}
		if order.PaymentStatus == entity.PaymentStatusWaitingConfirmation {
			return denied("payment_pending", "", msgPaymentPending)
		}
		if tabLock.IsLocked {
			return denied("tab_lock", tabLock.Message, msgTabClosed)
		}
		return allowed

	case ActionPay:
		if order.PaymentStatus == entity.PaymentStatusPaid {
			return denied("paid", "", msgOrderPaid)
		}
		return allowed

	default:
		return denied("unknown_action", "", "Unknown action.")
	}
}
