package handler

import (
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler serves the customer-facing order lifecycle.
type OrderHandler struct {
	orders *service.OrderService
	proofs *service.PaymentProofStore
}

func NewOrderHandler(orders *service.OrderService, proofs *service.PaymentProofStore) *OrderHandler {
	return &OrderHandler{orders: orders, proofs: proofs}
}

// Submit places a new order.
// POST /api/orders
func (h *OrderHandler) Submit(c *gin.Context) {
	var req service.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	order, err := h.orders.SubmitOrder(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, order)
}

// Get returns one order with its items.
// GET /api/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, order)
}

// Lookup finds a customer's orders by contact details.
// GET /api/orders/lookup?email=...&telegram=...
func (h *OrderHandler) Lookup(c *gin.Context) {
	orders, err := h.orders.Lookup(c.Request.Context(), c.Query("email"), c.Query("telegram"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, orders)
}

type addItemsRequest struct {
	Items []service.OrderItemRequest `json:"items" binding:"required,dive"`
}

// AddItems appends items to an existing order.
// POST /api/orders/:id/items
func (h *OrderHandler) AddItems(c *gin.Context) {
	var req addItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	order, err := h.orders.AddItems(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, order)
}

type updateQuantityRequest struct {
	ProductCode string `json:"product_code" binding:"required"`
	OrderType   string `json:"order_type" binding:"required"`
	Quantity    int    `json:"qty" binding:"required"`
}

// UpdateQuantity changes one line's quantity.
// PUT /api/orders/:id/items
func (h *OrderHandler) UpdateQuantity(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	order, err := h.orders.UpdateItemQuantity(c.Request.Context(), c.Param("id"), req.ProductCode, req.OrderType, req.Quantity)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, order)
}

// Cancel soft-cancels an order.
// POST /api/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	if err := h.orders.CancelOrder(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

type paymentRequest struct {
	Image string `json:"image" binding:"required"`
}

// SubmitPayment uploads payment proof and marks the order waiting for
// confirmation.
// POST /api/orders/:id/payment
func (h *OrderHandler) SubmitPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	orderID := c.Param("id")
	objectName, err := h.proofs.Store(c.Request.Context(), orderID, req.Image)
	if err != nil {
		RespondError(c, err)
		return
	}

	order, err := h.orders.SubmitPayment(c.Request.Context(), orderID, objectName)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, order)
}
