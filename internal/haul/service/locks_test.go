package service

import (
	"testing"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/stretchr/testify/assert"
)

func TestIsOrderActionable_Submit(t *testing.T) {
	order := &entity.Order{TabName: "Haul 12"}

	t.Run("open form allows submit", func(t *testing.T) {
		d := IsOrderActionable(order, ActionSubmit, entity.TabLock{}, entity.FormLock{})
		assert.True(t, d.Allowed)
	})

	t.Run("global lock blocks submit", func(t *testing.T) {
		d := IsOrderActionable(order, ActionSubmit, entity.TabLock{}, entity.FormLock{IsLocked: true, Message: "Closed for restock"})
		assert.False(t, d.Allowed)
		assert.Equal(t, "global_lock", d.Reason)
		assert.Equal(t, "Closed for restock", d.Message)
	})

	t.Run("global lock without message uses generic text", func(t *testing.T) {
		d := IsOrderActionable(order, ActionSubmit, entity.TabLock{}, entity.FormLock{IsLocked: true})
		assert.False(t, d.Allowed)
		assert.Equal(t, msgFormClosed, d.Message)
	})

	t.Run("tab lock blocks submit", func(t *testing.T) {
		d := IsOrderActionable(order, ActionSubmit, entity.TabLock{TabName: "Haul 12", IsLocked: true}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "tab_lock", d.Reason)
	})
}

func TestIsOrderActionable_Update(t *testing.T) {
	base := entity.Order{TabName: "Haul 12", Status: entity.OrderStatusPending, PaymentStatus: entity.PaymentStatusUnpaid}

	t.Run("pending unpaid order is editable", func(t *testing.T) {
		order := base
		d := IsOrderActionable(&order, ActionUpdate, entity.TabLock{}, entity.FormLock{})
		assert.True(t, d.Allowed)
	})

	t.Run("cancelled order is frozen", func(t *testing.T) {
		order := base
		order.Status = entity.OrderStatusCancelled
		d := IsOrderActionable(&order, ActionUpdate, entity.TabLock{}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "cancelled", d.Reason)
	})

	t.Run("admin locked order is frozen", func(t *testing.T) {
		order := base
		order.AdminLocked = true
		d := IsOrderActionable(&order, ActionUpdate, entity.TabLock{}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "order_lock", d.Reason)
	})

	t.Run("paid order is frozen", func(t *testing.T) {
		order := base
		order.PaymentStatus = entity.PaymentStatusPaid
		d := IsOrderActionable(&order, ActionUpdate, entity.TabLock{}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "paid", d.Reason)
	})

	t.Run("waiting confirmation freezes edits", func(t *testing.T) {
		order := base
		order.PaymentStatus = entity.PaymentStatusWaitingConfirmation
		d := IsOrderActionable(&order, ActionUpdate, entity.TabLock{}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "payment_pending", d.Reason)
	})

	t.Run("global lock blocks edits", func(t *testing.T) {
		order := base
		d := IsOrderActionable(&order, ActionUpdate, entity.TabLock{}, entity.FormLock{IsLocked: true})
		assert.False(t, d.Allowed)
		assert.Equal(t, "global_lock", d.Reason)
	})

	t.Run("tab lock blocks edits", func(t *testing.T) {
		order := base
		d := IsOrderActionable(&order, ActionUpdate, entity.TabLock{IsLocked: true}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "tab_lock", d.Reason)
	})
}

func TestIsOrderActionable_Cancel(t *testing.T) {
	base := entity.Order{TabName: "Haul 12", Status: entity.OrderStatusPending, PaymentStatus: entity.PaymentStatusUnpaid}

	t.Run("global lock does not block cancel", func(t *testing.T) {
		order := base
		d := IsOrderActionable(&order, ActionCancel, entity.TabLock{}, entity.FormLock{IsLocked: true})
		assert.True(t, d.Allowed)
	})

	t.Run("tab lock blocks cancel", func(t *testing.T) {
		order := base
		d := IsOrderActionable(&order, ActionCancel, entity.TabLock{IsLocked: true}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "tab_lock", d.Reason)
	})

	t.Run("cancelling twice is rejected", func(t *testing.T) {
		order := base
		order.Status = entity.OrderStatusCancelled
		d := IsOrderActionable(&order, ActionCancel, entity.TabLock{}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "cancelled", d.Reason)
	})

	t.Run("admin locked order cannot be cancelled", func(t *testing.T) {
		order := base
		order.AdminLocked = true
		d := IsOrderActionable(&order, ActionCancel, entity.TabLock{}, entity.FormLock{})
		assert.False(t, d.Allowed)
	})

	t.Run("waiting confirmation blocks cancel", func(t *testing.T) {
		order := base
		order.PaymentStatus = entity.PaymentStatusWaitingConfirmation
		d := IsOrderActionable(&order, ActionCancel, entity.TabLock{}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "payment_pending", d.Reason)
	})

	t.Run("paid order cannot be cancelled", func(t *testing.T) {
		order := base
		order.PaymentStatus = entity.PaymentStatusPaid
		d := IsOrderActionable(&order, ActionCancel, entity.TabLock{}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "paid", d.Reason)
	})
}

func TestIsOrderActionable_Pay(t *testing.T) {
	base := entity.Order{TabName: "Haul 12", Status: entity.OrderStatusPending, PaymentStatus: entity.PaymentStatusUnpaid}

	t.Run("payment is exempt from all locks", func(t *testing.T) {
		order := base
		order.AdminLocked = true
		d := IsOrderActionable(&order, ActionPay,
			entity.TabLock{IsLocked: true}, entity.FormLock{IsLocked: true})
		assert.True(t, d.Allowed)
	})

	t.Run("waiting confirmation can re-upload proof", func(t *testing.T) {
		order := base
		order.PaymentStatus = entity.PaymentStatusWaitingConfirmation
		d := IsOrderActionable(&order, ActionPay, entity.TabLock{}, entity.FormLock{})
		assert.True(t, d.Allowed)
	})

	t.Run("paid order rejects further payment", func(t *testing.T) {
		order := base
		order.PaymentStatus = entity.PaymentStatusPaid
		d := IsOrderActionable(&order, ActionPay, entity.TabLock{}, entity.FormLock{})
		assert.False(t, d.Allowed)
		assert.Equal(t, "paid", d.Reason)
	})
}

func TestIsOrderActionable_UnknownAction(t *testing.T) {
	order := &entity.Order{}
	d := IsOrderActionable(order, Action("archive"), entity.TabLock{}, entity.FormLock{})
	assert.False(t, d.Allowed)
	assert.Equal(t, "unknown_action", d.Reason)
}
